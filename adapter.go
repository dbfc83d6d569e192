package authkit

import (
	"context"
	"time"
)

// User is an identity record. The id is opaque and adapter-assigned.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"` // unique when present
	EmailVerified bool      `json:"email_verified"`
	Name          string    `json:"name,omitempty"`
	Image         string    `json:"image,omitempty"`
	PasswordHash  string    `json:"-"` // set only for users with local credentials
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Account links a User to an external provider identity. The pair
// (Provider, ProviderAccountID) is unique and the record has no lifecycle
// of its own - it is destroyed with its User.
type Account struct {
	UserID            string    `json:"user_id"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	AccessToken       string    `json:"access_token,omitempty"`
	RefreshToken      string    `json:"refresh_token,omitempty"`
	TokenExpiresAt    time.Time `json:"token_expires_at,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Session is one authenticated presence of a user. A user may hold many
// concurrent sessions.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Rolling   bool      `json:"rolling,omitempty"` // renewal marker, set when the rolling policy created it
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session's expiry has passed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TokenPurpose tags what a one-time token is for.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeInvite            TokenPurpose = "invite"
)

// VerificationToken is the persisted form of a one-time token. Only the
// keyed hash is ever stored; the raw token never reaches the Adapter.
type VerificationToken struct {
	Identifier string       `json:"identifier"` // email or org-scoped subject
	Purpose    TokenPurpose `json:"purpose"`
	TokenHash  string       `json:"token_hash"`
	ExpiresAt  time.Time    `json:"expires_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsExpired returns true if the token's expiry has passed.
func (t *VerificationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// Adapter is the storage contract the engine calls for all persistence.
// Implementations live outside the engine (the stores packages ship an
// in-memory one for development and a GORM-backed one).
//
// Negative lookups return ErrNotFound, never a nil record with nil error.
// Any I/O failure should come back wrapped so the engine can propagate it
// as a StorageError.
//
// UseVerificationToken must be atomic: under concurrent calls for the same
// (identifier, tokenHash, purpose) exactly one caller receives the record,
// the rest receive ErrNotFound.
type Adapter interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) (*User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	CreateVerificationToken(ctx context.Context, token *VerificationToken) (*VerificationToken, error)
	// UseVerificationToken atomically finds and consumes the token matching
	// (identifier, tokenHash, purpose), returning the prior record. Tokens
	// scoped to a different purpose must not match or be removed.
	UseVerificationToken(ctx context.Context, identifier, tokenHash string, purpose TokenPurpose) (*VerificationToken, error)
	// DeleteVerificationTokens removes all tokens for (identifier, purpose).
	// Used by callers that want a reissue to invalidate earlier tokens.
	DeleteVerificationTokens(ctx context.Context, identifier string, purpose TokenPurpose) error

	LinkAccount(ctx context.Context, account *Account) (*Account, error)
	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error)
}
