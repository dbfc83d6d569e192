package authkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/authkit-go/authkit/password"
)

// Engine is the authentication core. It composes the session manager,
// csrf guard, one-time token service and password hasher around a single
// Adapter. Construct it with New and treat it as immutable afterwards.
type Engine struct {
	Adapter Adapter
	Config  Config

	Sessions *SessionManager
	Csrf     CsrfGuard
	Tokens   *OneTimeTokens

	// EmailSender delivers verification/reset/invite mail. Nil disables
	// outbound mail (flows still work, links are just not sent).
	EmailSender SendEmail

	hasherSel password.Selector
}

// New builds an Engine over the given adapter, applying env defaults to
// the config.
func New(adapter Adapter, config Config) *Engine {
	config.EnsureDefaults()
	e := &Engine{
		Adapter: adapter,
		Config:  config,
		Sessions: &SessionManager{
			Adapter: adapter,
			TTL:     config.SessionTTL(),
			Rolling: config.RollingSessions,
		},
		Tokens: &OneTimeTokens{
			Adapter: adapter,
			Secret:  config.Secret,
		},
	}
	e.hasherSel.Override = config.HasherOverride
	return e
}

// Hasher returns the process-wide password hasher, resolving it on first
// use via the environment policy (or the configured override).
func (e *Engine) Hasher() password.Hasher {
	return e.hasherSel.Resolve()
}

// ResetHasher clears the cached hasher selection. For tests.
func (e *Engine) ResetHasher() {
	e.hasherSel.Reset()
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with local credentials and, when mail is
// configured, issues an email verification token and sends the link.
// Registering an already-taken email fails; the uniqueness check itself is
// the Adapter's (CreateUser rejects duplicates), this only provides the
// friendly pre-check.
func (e *Engine) Register(ctx context.Context, email, name, plaintext string) (*User, error) {
	email = NormalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return nil, NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if len(plaintext) < 8 {
		return nil, NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters", "password")
	}

	if existing, err := e.Adapter.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, NewAuthError(ErrCodeEmailExists, "Email already registered", "email")
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, NewStorageError("get user by email", err)
	}

	hash, err := e.Hasher().Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := e.Adapter.CreateUser(ctx, &User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, NewStorageError("create user", err)
	}

	if e.EmailSender != nil && e.Config.BaseURL != "" {
		raw, err := e.Tokens.Issue(ctx, email, PurposeEmailVerification, TokenExpiryEmailVerification)
		if err != nil {
			log.Println("error creating verification token: ", err)
		} else {
			link := fmt.Sprintf("%s/auth/verify-email?token=%s&email=%s", e.Config.BaseURL, raw, email)
			if err := e.EmailSender.SendVerificationEmail(email, link); err != nil {
				log.Println("error sending verification email: ", err)
			}
		}
	}

	return user, nil
}

// LoginWithPassword validates local credentials and issues a session for
// the configured strategy. Unknown user, wrong password and unverified
// email (when required) all return ErrInvalidCredentials so responses
// reveal nothing.
func (e *Engine) LoginWithPassword(ctx context.Context, email, plaintext string) (*Session, error) {
	user, err := e.Adapter.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, NewStorageError("get user by email", err)
	}
	if user.PasswordHash == "" || !e.Hasher().Verify(user.PasswordHash, plaintext) {
		return nil, ErrInvalidCredentials
	}
	if e.Config.RequireEmailVerification && !user.EmailVerified {
		return nil, ErrInvalidCredentials
	}
	return e.IssueSession(ctx, user.ID)
}

// IssueSession mints a session for the configured strategy. Under
// "database" the session is persisted and its adapter-assigned id is the
// client credential. Under "stateless" nothing touches the Adapter; the
// signed token doubles as the session id, matching what
// ValidateSessionToken reconstructs from its claims.
func (e *Engine) IssueSession(ctx context.Context, userID string) (*Session, error) {
	if e.Config.SessionStrategy == SessionStrategyStateless {
		token, err := signStatelessSession(userID, e.Config.Secret, e.Config.SessionTTL())
		if err != nil {
			return nil, err
		}
		now := time.Now()
		return &Session{
			ID:        token,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(e.Config.SessionTTL()),
		}, nil
	}
	return e.Sessions.Create(ctx, userID)
}

// IssueSessionToken is IssueSession returning only the client-facing
// credential.
func (e *Engine) IssueSessionToken(ctx context.Context, userID string) (string, error) {
	sess, err := e.IssueSession(ctx, userID)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// ValidateSessionToken resolves a client-facing session credential to a
// session record. Negative outcomes are ErrNotFound/ErrExpired.
func (e *Engine) ValidateSessionToken(ctx context.Context, token string) (*Session, error) {
	if e.Config.SessionStrategy == SessionStrategyStateless {
		return verifyStatelessSession(token, e.Config.Secret)
	}
	return e.Sessions.Validate(ctx, token)
}

// RevokeSessionToken ends the session behind the credential. Stateless
// tokens cannot be revoked server-side; revocation is a no-op for them and
// the cookie removal is the caller's job.
func (e *Engine) RevokeSessionToken(ctx context.Context, token string) error {
	if e.Config.SessionStrategy == SessionStrategyStateless {
		return nil
	}
	return e.Sessions.Revoke(ctx, token)
}

// VerifyEmail consumes an email verification token and marks the user's
// email verified.
func (e *Engine) VerifyEmail(ctx context.Context, email, rawToken string) error {
	email = NormalizeEmail(email)
	rec, err := e.Tokens.Use(ctx, email, PurposeEmailVerification, rawToken)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrInvalidCredentials
	}

	user, err := e.Adapter.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return NewStorageError("get user by email", err)
	}
	user.EmailVerified = true
	if _, err := e.Adapter.UpdateUser(ctx, user); err != nil {
		return NewStorageError("update user", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token and mails the link. It always
// succeeds outwardly so callers cannot probe which emails exist; failures
// are only logged.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) {
	email = NormalizeEmail(email)
	if _, err := e.Adapter.GetUserByEmail(ctx, email); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Println("error looking up user for reset: ", err)
		}
		return
	}

	raw, err := e.Tokens.Issue(ctx, email, PurposePasswordReset, TokenExpiryPasswordReset)
	if err != nil {
		log.Println("error creating reset token: ", err)
		return
	}
	if e.EmailSender != nil && e.Config.BaseURL != "" {
		link := fmt.Sprintf("%s/auth/reset-password?token=%s&email=%s", e.Config.BaseURL, raw, email)
		if err := e.EmailSender.SendPasswordResetEmail(email, link); err != nil {
			log.Println("error sending reset email: ", err)
		}
	}
}

// ResetPassword consumes a reset token and replaces the user's password
// hash. Wrong, expired and reused tokens are indistinguishable to the
// caller.
func (e *Engine) ResetPassword(ctx context.Context, email, rawToken, newPassword string) error {
	email = NormalizeEmail(email)
	if len(newPassword) < 8 {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters", "password")
	}

	rec, err := e.Tokens.Use(ctx, email, PurposePasswordReset, rawToken)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrInvalidCredentials
	}

	user, err := e.Adapter.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return NewStorageError("get user by email", err)
	}

	hash, err := e.Hasher().Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if _, err := e.Adapter.UpdateUser(ctx, user); err != nil {
		return NewStorageError("update user", err)
	}
	return nil
}

// InviteToOrg issues an org invite token, mails the link when a sender is
// configured, and returns the invite for the caller to persist with its
// org and role columns.
func (e *Engine) InviteToOrg(ctx context.Context, email, orgID, role string) (*Invite, error) {
	invite, err := IssueInviteToken(NormalizeEmail(email), orgID, role, e.Config.Secret, TokenExpiryInvite)
	if err != nil {
		return nil, err
	}
	if e.EmailSender != nil && e.Config.BaseURL != "" {
		link := fmt.Sprintf("%s/auth/invite?token=%s&org=%s", e.Config.BaseURL, invite.Token, orgID)
		if err := e.EmailSender.SendInviteEmail(invite.Email, orgID, link); err != nil {
			log.Println("error sending invite email: ", err)
		}
	}
	return invite, nil
}
