// Package stores provides Adapter implementations: an in-memory one for
// development and tests, and a GORM-backed one in the gorm subpackage.
package stores

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authkit-go/authkit"
)

// MemoryAdapter is a mutex-guarded, map-backed Adapter. It satisfies the
// atomicity the engine requires from UseVerificationToken because every
// operation runs under its single lock. Returned records are copies, so
// callers can mutate them freely and re-submit through the update calls.
type MemoryAdapter struct {
	mu       sync.Mutex
	users    map[string]*authkit.User
	byEmail  map[string]string // email -> user id
	sessions map[string]*authkit.Session
	tokens   []*authkit.VerificationToken
	accounts map[string]*authkit.Account // provider/providerAccountID -> account
}

var _ authkit.Adapter = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users:    make(map[string]*authkit.User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*authkit.Session),
		accounts: make(map[string]*authkit.Account),
	}
}

func accountKey(provider, providerAccountID string) string {
	return provider + "/" + providerAccountID
}

func (m *MemoryAdapter) CreateUser(_ context.Context, user *authkit.User) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.Email != "" {
		if _, taken := m.byEmail[user.Email]; taken {
			return nil, fmt.Errorf("email %s already registered", user.Email)
		}
	}

	rec := *user
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.users[rec.ID] = &rec
	if rec.Email != "" {
		m.byEmail[rec.Email] = rec.ID
	}

	out := rec
	return &out, nil
}

func (m *MemoryAdapter) GetUser(_ context.Context, id string) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[id]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryAdapter) GetUserByEmail(_ context.Context, email string) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MemoryAdapter) UpdateUser(_ context.Context, user *authkit.User) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.users[user.ID]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	if prev.Email != user.Email {
		if user.Email != "" {
			if owner, taken := m.byEmail[user.Email]; taken && owner != user.ID {
				return nil, fmt.Errorf("email %s already registered", user.Email)
			}
		}
		delete(m.byEmail, prev.Email)
		if user.Email != "" {
			m.byEmail[user.Email] = user.ID
		}
	}

	rec := *user
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	m.users[rec.ID] = &rec

	out := rec
	return &out, nil
}

// DeleteUser removes the user and cascades to its accounts and sessions,
// matching the rule that an Account has no lifecycle of its own.
func (m *MemoryAdapter) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[id]
	if !ok {
		return authkit.ErrNotFound
	}
	delete(m.users, id)
	delete(m.byEmail, rec.Email)
	for key, acct := range m.accounts {
		if acct.UserID == id {
			delete(m.accounts, key)
		}
	}
	for sid, sess := range m.sessions {
		if sess.UserID == id {
			delete(m.sessions, sid)
		}
	}
	return nil
}

func (m *MemoryAdapter) CreateSession(_ context.Context, session *authkit.Session) (*authkit.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *session
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	m.sessions[rec.ID] = &rec

	out := rec
	return &out, nil
}

func (m *MemoryAdapter) GetSession(_ context.Context, id string) (*authkit.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryAdapter) UpdateSession(_ context.Context, session *authkit.Session) (*authkit.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; !ok {
		return nil, authkit.ErrNotFound
	}
	rec := *session
	m.sessions[rec.ID] = &rec

	out := rec
	return &out, nil
}

func (m *MemoryAdapter) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return authkit.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryAdapter) CreateVerificationToken(_ context.Context, token *authkit.VerificationToken) (*authkit.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *token
	rec.CreatedAt = time.Now()
	m.tokens = append(m.tokens, &rec)

	out := rec
	return &out, nil
}

func (m *MemoryAdapter) UseVerificationToken(_ context.Context, identifier, tokenHash string, purpose authkit.TokenPurpose) (*authkit.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.tokens {
		if rec.Identifier == identifier && rec.TokenHash == tokenHash && rec.Purpose == purpose {
			out := *rec
			m.tokens = append(m.tokens[:i], m.tokens[i+1:]...)
			return &out, nil
		}
	}
	return nil, authkit.ErrNotFound
}

func (m *MemoryAdapter) DeleteVerificationTokens(_ context.Context, identifier string, purpose authkit.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tokens[:0]
	for _, rec := range m.tokens {
		if rec.Identifier == identifier && rec.Purpose == purpose {
			continue
		}
		kept = append(kept, rec)
	}
	m.tokens = kept
	return nil
}

func (m *MemoryAdapter) LinkAccount(_ context.Context, account *authkit.Account) (*authkit.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountKey(account.Provider, account.ProviderAccountID)
	if _, taken := m.accounts[key]; taken {
		return nil, fmt.Errorf("account %s already linked", key)
	}
	if _, ok := m.users[account.UserID]; !ok {
		return nil, fmt.Errorf("user %s not found", account.UserID)
	}

	rec := *account
	rec.CreatedAt = time.Now()
	m.accounts[key] = &rec

	out := rec
	return &out, nil
}

func (m *MemoryAdapter) GetAccountByProvider(_ context.Context, provider, providerAccountID string) (*authkit.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	out := *rec
	return &out, nil
}
