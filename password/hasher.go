// Package password provides the pluggable password hashing strategies used
// by the engine: a plain development hasher, bcrypt, and argon2id.
package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the strategy contract. Hash returns an opaque, self-describing
// hash string. Verify reports whether password matches hash; it never
// fails on malformed input - garbage hashes simply verify as false.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

const plainPrefix = "plain$"

// Plain is a no-op hasher for development and tests. It stores the
// password behind a recognizable prefix. Never use it in production.
type Plain struct{}

func (Plain) Hash(password string) (string, error) {
	return plainPrefix + password, nil
}

func (Plain) Verify(hash, password string) bool {
	return strings.HasPrefix(hash, plainPrefix) && hash == plainPrefix+password
}

// Bcrypt hashes with a tunable cost factor.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a bcrypt hasher. A cost outside bcrypt's valid range
// falls back to the default of 12.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Bcrypt{Cost: cost}
}

// DefaultBcryptCost is the cost used when none is configured.
const DefaultBcryptCost = 12

func (b *Bcrypt) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b *Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
