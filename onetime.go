package authkit

import (
	"context"
	"errors"
	"time"
)

// Default lifetimes for issued one-time tokens.
const (
	TokenExpiryEmailVerification = 24 * time.Hour
	TokenExpiryPasswordReset     = 1 * time.Hour
	TokenExpiryInvite            = 7 * 24 * time.Hour
)

// OneTimeTokens issues and consumes single-use tokens for verification,
// reset and invite flows. Tokens are scoped by (identifier, purpose) and
// stored only as keyed hashes; the raw token goes to the caller once and
// never again.
type OneTimeTokens struct {
	Adapter Adapter

	// Secret keys the token hash. Must stay stable across issuance and
	// consumption.
	Secret string
}

// Issue generates a high-entropy raw token, persists its hash with the
// given scope and lifetime, and returns the raw token.
//
// Issuing again for the same (identifier, purpose) leaves earlier
// unexpired tokens consumable; callers that want reissue-invalidates
// semantics call DeleteTokens first.
func (s *OneTimeTokens) Issue(ctx context.Context, identifier string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	raw, err := GenerateSecureToken()
	if err != nil {
		return "", err
	}
	rec := &VerificationToken{
		Identifier: identifier,
		Purpose:    purpose,
		TokenHash:  TokenHash(raw, s.Secret),
		ExpiresAt:  time.Now().Add(ttl),
	}
	if _, err := s.Adapter.CreateVerificationToken(ctx, rec); err != nil {
		return "", NewStorageError("create verification token", err)
	}
	return raw, nil
}

// Use recomputes the hash of the supplied raw token, atomically consumes
// the record matching it under the given purpose, and returns it. A token
// issued for another purpose does not match and is left intact. Wrong
// token, wrong purpose, expired token and already-consumed token all
// return (nil, nil) so callers cannot tell them apart - nor can their
// users. Storage failures are the only error case.
func (s *OneTimeTokens) Use(ctx context.Context, identifier string, purpose TokenPurpose, rawToken string) (*VerificationToken, error) {
	rec, err := s.Adapter.UseVerificationToken(ctx, identifier, TokenHash(rawToken, s.Secret), purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, NewStorageError("use verification token", err)
	}
	// Expiry is checked lazily here; the consumption above already removed
	// the record so an expired token is spent either way.
	if rec.IsExpired() {
		return nil, nil
	}
	return rec, nil
}

// DeleteTokens removes all outstanding tokens for (identifier, purpose).
func (s *OneTimeTokens) DeleteTokens(ctx context.Context, identifier string, purpose TokenPurpose) error {
	if err := s.Adapter.DeleteVerificationTokens(ctx, identifier, purpose); err != nil {
		return NewStorageError("delete verification tokens", err)
	}
	return nil
}
