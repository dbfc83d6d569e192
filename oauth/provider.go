// Package oauth drives the OAuth authorization-code flow against
// declarative provider descriptors. A provider is data, not code: adding
// one means adding a Provider record, and the Flow controller is the only
// place that interprets it.
package oauth

import (
	"os"
	"strings"
)

// TokenStyle selects how a provider's token endpoint wants the exchange
// request encoded.
type TokenStyle string

const (
	// TokenStyleForm posts application/x-www-form-urlencoded, the common
	// case handled by golang.org/x/oauth2.
	TokenStyleForm TokenStyle = "form"

	// TokenStyleJSON posts a JSON body, for providers that insist on it.
	TokenStyleJSON TokenStyle = "json"
)

// Profile is the canonical identity shape every provider's response is
// normalized into.
type Profile struct {
	ExternalID    string
	Email         string
	Name          string
	Image         string
	EmailVerified bool
}

// MapProfileFunc normalizes a provider's raw userinfo (or id_token claims)
// into the canonical Profile. Pure transform, no I/O.
type MapProfileFunc func(raw map[string]any) Profile

// Provider describes an OAuth identity provider declaratively.
type Provider struct {
	// ID names the provider ("google", "github", ...). Account records
	// are keyed by it.
	ID string

	// AuthURL is the authorization endpoint. AuthParams are extra query
	// parameters beyond the standard client_id/redirect_uri/response_type/
	// scope/state set.
	AuthURL    string
	AuthParams map[string]string

	// TokenURL is the code exchange endpoint, TokenStyle its request
	// encoding (defaults to form), TokenHeaders extra headers to send.
	TokenURL     string
	TokenStyle   TokenStyle
	TokenHeaders map[string]string

	// UserinfoURL is fetched with the access token and fed through
	// MapProfile. When ProfileFromIDToken is set the userinfo call is
	// skipped and MapProfile receives the id_token claims instead.
	UserinfoURL        string
	ProfileFromIDToken bool
	MapProfile         MapProfileFunc

	Scopes       []string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// EnsureDefaults fills credentials from OAUTH2_<ID>_* environment
// variables when unset, the same convention the provider constructors in
// the wild use.
func (p *Provider) EnsureDefaults() *Provider {
	upper := strings.ToUpper(p.ID)
	if p.ClientID == "" {
		p.ClientID = strings.TrimSpace(os.Getenv("OAUTH2_" + upper + "_CLIENT_ID"))
	}
	if p.ClientSecret == "" {
		p.ClientSecret = strings.TrimSpace(os.Getenv("OAUTH2_" + upper + "_CLIENT_SECRET"))
	}
	if p.RedirectURL == "" {
		p.RedirectURL = strings.TrimSpace(os.Getenv("OAUTH2_" + upper + "_CALLBACK_URL"))
	}
	if p.TokenStyle == "" {
		p.TokenStyle = TokenStyleForm
	}
	return p
}

func stringClaim(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func boolClaim(raw map[string]any, key string) bool {
	v, ok := raw[key].(bool)
	return ok && v
}
