package authkit

import (
	"context"
	"errors"
	"time"
)

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager issues, validates, rotates and revokes sessions against
// the Adapter. It holds no state of its own - every operation is a call
// into the store.
type SessionManager struct {
	Adapter Adapter

	// TTL is the session lifetime. Zero means DefaultSessionTTL.
	TTL time.Duration

	// Rolling extends a session's expiry by TTL on each successful
	// validation.
	Rolling bool
}

func (m *SessionManager) ttl() time.Duration {
	if m.TTL <= 0 {
		return DefaultSessionTTL
	}
	return m.TTL
}

// Create issues a new session for userID expiring TTL from now. The
// returned record carries the adapter-assigned id.
func (m *SessionManager) Create(ctx context.Context, userID string) (*Session, error) {
	return m.CreateWithTTL(ctx, userID, m.ttl())
}

// CreateWithTTL is Create with an explicit lifetime.
func (m *SessionManager) CreateWithTTL(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = m.ttl()
	}
	sess := &Session{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
		Rolling:   m.Rolling,
	}
	created, err := m.Adapter.CreateSession(ctx, sess)
	if err != nil {
		return nil, NewStorageError("create session", err)
	}
	return created, nil
}

// Validate fetches the session and checks its expiry. Absent sessions
// return ErrNotFound; expired sessions are revoked and return ErrExpired.
// Both are normal negative results. On success under the rolling policy
// the expiry is extended before returning.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.Adapter.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, NewStorageError("get session", err)
	}
	if sess.IsExpired() {
		// Hygiene, not correctness: expiry is already decided.
		if err := m.Revoke(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	if m.Rolling {
		if err := m.rotate(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// rotate extends the session by TTL. The extension is monotonic: a
// rotation never shortens a session that already expires further out.
func (m *SessionManager) rotate(ctx context.Context, sess *Session) error {
	next := time.Now().Add(m.ttl())
	if !next.After(sess.ExpiresAt) {
		return nil
	}
	sess.ExpiresAt = next
	sess.Rolling = true
	if _, err := m.Adapter.UpdateSession(ctx, sess); err != nil {
		return NewStorageError("update session", err)
	}
	return nil
}

// Revoke deletes the session. Idempotent: revoking an absent or
// already-revoked session is not an error.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	err := m.Adapter.DeleteSession(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return NewStorageError("delete session", err)
	}
	return nil
}
