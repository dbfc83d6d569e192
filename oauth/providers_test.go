package oauth

import "testing"

func TestGoogleProvider(t *testing.T) {
	p := Google("cid", "secret", "http://localhost/callback")
	if p.ID != "google" {
		t.Errorf("expected id google, got %q", p.ID)
	}
	if !p.ProfileFromIDToken {
		t.Error("google profile must come from the id_token")
	}
	if p.TokenStyle != TokenStyleForm {
		t.Errorf("expected form token style, got %q", p.TokenStyle)
	}

	profile := p.MapProfile(map[string]any{
		"sub":            "g-123",
		"email":          "alice@gmail.com",
		"name":           "Alice",
		"picture":        "https://img.example/alice",
		"email_verified": true,
	})
	if profile.ExternalID != "g-123" || profile.Email != "alice@gmail.com" {
		t.Errorf("claims not mapped: %+v", profile)
	}
	if !profile.EmailVerified {
		t.Error("email_verified claim dropped")
	}

	// Missing claims fall back to zero values, never panic.
	empty := p.MapProfile(map[string]any{})
	if empty.ExternalID != "" || empty.EmailVerified {
		t.Errorf("expected zero profile, got %+v", empty)
	}
}

func TestGitHubProvider(t *testing.T) {
	p := GitHub("cid", "secret", "http://localhost/callback")
	if p.ID != "github" {
		t.Errorf("expected id github, got %q", p.ID)
	}
	if p.UserinfoURL == "" {
		t.Error("github needs a userinfo endpoint")
	}
	if p.TokenHeaders["Accept"] != "application/json" {
		t.Error("github token endpoint needs the json Accept header")
	}

	// Numeric id and login fallback for the display name.
	profile := p.MapProfile(map[string]any{
		"id":    float64(42),
		"login": "octocat",
		"email": "octo@github.example",
	})
	if profile.ExternalID != "42" {
		t.Errorf("expected external id 42, got %q", profile.ExternalID)
	}
	if profile.Name != "octocat" {
		t.Errorf("expected login fallback, got %q", profile.Name)
	}
	if !profile.EmailVerified {
		t.Error("present email should count as verified")
	}

	// No public email on the profile.
	hidden := p.MapProfile(map[string]any{"id": float64(7), "name": "Seven"})
	if hidden.Email != "" || hidden.EmailVerified {
		t.Errorf("expected no email asserted, got %+v", hidden)
	}
}

func TestProviderEnsureDefaults(t *testing.T) {
	t.Setenv("OAUTH2_ACME_CLIENT_ID", "env-cid")
	t.Setenv("OAUTH2_ACME_CLIENT_SECRET", "env-secret")
	t.Setenv("OAUTH2_ACME_CALLBACK_URL", "http://env.example/callback")

	p := (&Provider{ID: "acme"}).EnsureDefaults()
	if p.ClientID != "env-cid" || p.ClientSecret != "env-secret" {
		t.Errorf("env credentials not picked up: %+v", p)
	}
	if p.RedirectURL != "http://env.example/callback" {
		t.Errorf("env callback not picked up: %q", p.RedirectURL)
	}
	if p.TokenStyle != TokenStyleForm {
		t.Errorf("expected form default, got %q", p.TokenStyle)
	}

	// Explicit values win over the environment.
	q := (&Provider{ID: "acme", ClientID: "explicit"}).EnsureDefaults()
	if q.ClientID != "explicit" {
		t.Errorf("explicit client id overridden: %q", q.ClientID)
	}
}
