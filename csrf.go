package authkit

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// CsrfCookieName is the client-readable cookie the token is mirrored into.
const CsrfCookieName = "authkit_csrf"

// CsrfHeaderName is the header the client echoes the token back in.
const CsrfHeaderName = "X-Csrf-Token"

// CsrfCacheTTL is how long a client should cache an issued token before
// re-fetching. The token itself carries no expiry; the window just limits
// exposure of any one value.
const CsrfCacheTTL = time.Hour

// CsrfGuard implements double-submit-cookie protection. Tokens are random
// values with no server-side storage: the caller places the issued token
// in a client-readable cookie and returns it in the response body, and the
// client echoes it back in a header on state-changing requests.
type CsrfGuard struct {
	// OnInvalidate, when set, is called after a mismatch so the calling
	// layer can drop its cached token and re-fetch on the next attempt.
	OnInvalidate func()
}

// IssueToken generates a fresh token.
func (g *CsrfGuard) IssueToken() (string, error) {
	return GenerateSecureToken()
}

// Validate checks the double-submit pair for the given request method.
// Safe verbs are exempt; state-changing verbs require the cookie and the
// supplied value to match exactly, compared in constant time. On mismatch
// it fires the invalidation hook and returns ErrCsrfMismatch - callers
// should answer with a 403 equivalent.
func (g *CsrfGuard) Validate(cookieValue, suppliedValue, method string) error {
	if MethodExemptFromCsrf(method) {
		return nil
	}
	if cookieValue == "" || suppliedValue == "" ||
		subtle.ConstantTimeCompare([]byte(cookieValue), []byte(suppliedValue)) != 1 {
		if g.OnInvalidate != nil {
			g.OnInvalidate()
		}
		return ErrCsrfMismatch
	}
	return nil
}

// MethodExemptFromCsrf reports whether the verb is safe and therefore not
// subject to the double-submit check.
func MethodExemptFromCsrf(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
