package authkit

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/authkit-go/authkit/password"
)

// SessionStrategy selects how issued sessions are represented.
type SessionStrategy string

const (
	// SessionStrategyDatabase persists sessions through the Adapter and
	// hands the client an opaque session id.
	SessionStrategyDatabase SessionStrategy = "database"

	// SessionStrategyStateless encodes the session as a signed token; the
	// Adapter is not consulted on validation.
	SessionStrategyStateless SessionStrategy = "stateless"
)

// Environment variables recognized by Config.EnsureDefaults.
const (
	EnvSecret            = "AUTHKIT_SECRET"
	EnvSessionStrategy   = "AUTHKIT_SESSION_STRATEGY"
	EnvSessionTTLMinutes = "AUTHKIT_SESSION_TTL_MINUTES"
	EnvRollingSessions   = "AUTHKIT_ROLLING_SESSIONS"
	EnvBaseURL           = "AUTHKIT_BASE_URL"
)

// Config is the engine configuration surface.
type Config struct {
	// Secret keys token hashes and signs stateless sessions. Falls back to
	// AUTHKIT_SECRET.
	Secret string

	// SessionStrategy is "database" (default) or "stateless".
	SessionStrategy SessionStrategy

	// SessionTTLMinutes is the session lifetime. Defaults to 24h.
	SessionTTLMinutes int

	// RollingSessions extends expiry on each successful validation.
	RollingSessions bool

	// CookieSameSite is applied to cookies set by the HTTP surface.
	CookieSameSite http.SameSite

	// HasherOverride skips the environment-driven hasher selection.
	HasherOverride password.Hasher

	// BaseURL is used when building verification/reset links.
	BaseURL string

	// RequireEmailVerification blocks password login until the user's
	// email has been verified.
	RequireEmailVerification bool
}

// EnsureDefaults fills unset fields from the environment and built-in
// defaults, and returns the config for chaining.
func (c *Config) EnsureDefaults() *Config {
	if c.Secret == "" {
		c.Secret = strings.TrimSpace(os.Getenv(EnvSecret))
	}
	if c.Secret == "" {
		slog.Warn("no secret configured - token hashes and stateless session tokens are keyed on an empty string")
	}
	if c.SessionStrategy == "" {
		if s := os.Getenv(EnvSessionStrategy); s == string(SessionStrategyStateless) {
			c.SessionStrategy = SessionStrategyStateless
		} else {
			c.SessionStrategy = SessionStrategyDatabase
		}
	}
	if c.SessionTTLMinutes <= 0 {
		if v, err := strconv.Atoi(os.Getenv(EnvSessionTTLMinutes)); err == nil && v > 0 {
			c.SessionTTLMinutes = v
		} else {
			c.SessionTTLMinutes = int(DefaultSessionTTL / time.Minute)
		}
	}
	if !c.RollingSessions {
		c.RollingSessions = os.Getenv(EnvRollingSessions) == "true"
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = http.SameSiteLaxMode
	}
	if c.BaseURL == "" {
		c.BaseURL = strings.TrimSpace(os.Getenv(EnvBaseURL))
	}
	return c
}

// SessionTTL returns the configured lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
