package oauth

import (
	"fmt"

	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Google returns the provider descriptor for Google sign-in. Google's
// id_token already carries everything the profile needs, so no userinfo
// round trip is made.
func Google(clientID, clientSecret, redirectURL string) *Provider {
	p := &Provider{
		ID:       "google",
		AuthURL:  google.Endpoint.AuthURL,
		TokenURL: google.Endpoint.TokenURL,
		AuthParams: map[string]string{
			"access_type": "offline",
		},
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		ProfileFromIDToken: true,
		MapProfile: func(raw map[string]any) Profile {
			return Profile{
				ExternalID:    stringClaim(raw, "sub"),
				Email:         stringClaim(raw, "email"),
				Name:          stringClaim(raw, "name"),
				Image:         stringClaim(raw, "picture"),
				EmailVerified: boolClaim(raw, "email_verified"),
			}
		},
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	}
	return p.EnsureDefaults()
}

// GitHub returns the provider descriptor for GitHub sign-in. GitHub has
// no id_token; the profile comes from the user API. Emails on the user
// object are only present when public, so EmailVerified is asserted only
// when an email came back at all.
func GitHub(clientID, clientSecret, redirectURL string) *Provider {
	p := &Provider{
		ID:          "github",
		AuthURL:     github.Endpoint.AuthURL,
		TokenURL:    github.Endpoint.TokenURL,
		UserinfoURL: "https://api.github.com/user",
		TokenHeaders: map[string]string{
			"Accept": "application/json",
		},
		Scopes: []string{"read:user", "user:email"},
		MapProfile: func(raw map[string]any) Profile {
			externalID := ""
			if id, ok := raw["id"].(float64); ok {
				externalID = fmt.Sprintf("%.0f", id)
			}
			email := stringClaim(raw, "email")
			name := stringClaim(raw, "name")
			if name == "" {
				name = stringClaim(raw, "login")
			}
			return Profile{
				ExternalID:    externalID,
				Email:         email,
				Name:          name,
				Image:         stringClaim(raw, "avatar_url"),
				EmailVerified: email != "",
			}
		},
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	}
	return p.EnsureDefaults()
}
