package password

import (
	"log/slog"
	"os"
	"strconv"
	"sync"
)

// Environment variables recognized by the selector.
const (
	EnvHasher         = "AUTHKIT_PASSWORD_HASHER" // "plain", "bcrypt" or "argon2"
	EnvBcryptCost     = "AUTHKIT_BCRYPT_COST"
	EnvArgon2MemoryKB = "AUTHKIT_ARGON2_MEMORY_KB"
	EnvArgon2Time     = "AUTHKIT_ARGON2_TIME"
)

// Selector resolves the process-wide hasher once and caches it. It exists
// as an explicit injectable value rather than package-level mutable state;
// the package Default/ResetDefault accessors wrap a single shared instance
// for callers that want the old singleton behavior.
type Selector struct {
	// Override skips the environment policy when set.
	Override Hasher

	once   sync.Once
	cached Hasher
}

// Resolve returns the selected hasher, initializing it on first use. The
// policy is environment driven: AUTHKIT_PASSWORD_HASHER picks the variant,
// defaulting to argon2. If argon2 cannot be constructed with the
// configured parameters the selector degrades to bcrypt rather than
// failing the process.
func (s *Selector) Resolve() Hasher {
	s.once.Do(func() {
		if s.Override != nil {
			s.cached = s.Override
			return
		}
		s.cached = fromEnv()
	})
	return s.cached
}

// Reset clears the cached selection so the next Resolve re-reads the
// environment. For tests.
func (s *Selector) Reset() {
	s.once = sync.Once{}
	s.cached = nil
}

func fromEnv() Hasher {
	switch os.Getenv(EnvHasher) {
	case "plain":
		slog.Warn("using plain password hasher - development only")
		return Plain{}
	case "bcrypt":
		return NewBcrypt(envInt(EnvBcryptCost, DefaultBcryptCost))
	}

	// Default: memory-hard, with bcrypt as the graceful fallback.
	params := DefaultArgon2Params()
	if v := envInt(EnvArgon2MemoryKB, 0); v > 0 {
		params.MemoryKB = uint32(v)
	}
	if v := envInt(EnvArgon2Time, 0); v > 0 {
		params.Time = uint32(v)
	}
	a, err := NewArgon2(params)
	if err != nil {
		slog.Warn("argon2 unavailable, falling back to bcrypt", "err", err)
		return NewBcrypt(envInt(EnvBcryptCost, DefaultBcryptCost))
	}
	return a
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

var defaultSelector Selector

// Default returns the process-wide hasher, resolving it on first call.
func Default() Hasher {
	return defaultSelector.Resolve()
}

// ResetDefault clears the process-wide selection. For tests.
func ResetDefault() {
	defaultSelector.Reset()
}
