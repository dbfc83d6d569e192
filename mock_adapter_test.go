package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// mockAdapter is an in-memory Adapter for tests, with per-operation
// failure injection via failOn.
type mockAdapter struct {
	mu       sync.Mutex
	users    map[string]*User
	byEmail  map[string]string
	sessions map[string]*Session
	accounts map[string]*Account
	tokens   []*VerificationToken
	nextID   int
	failOn   map[string]error
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{
		users:    map[string]*User{},
		byEmail:  map[string]string{},
		sessions: map[string]*Session{},
		accounts: map[string]*Account{},
		failOn:   map[string]error{},
	}
}

func (m *mockAdapter) fail(op string) error { return m.failOn[op] }

func (m *mockAdapter) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockAdapter) CreateUser(_ context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return nil, err
	}
	if _, ok := m.byEmail[user.Email]; ok && user.Email != "" {
		return nil, fmt.Errorf("email %s already registered", user.Email)
	}
	rec := *user
	rec.ID = m.id("user")
	rec.CreatedAt = time.Now()
	m.users[rec.ID] = &rec
	if rec.Email != "" {
		m.byEmail[rec.Email] = rec.ID
	}
	out := rec
	return &out, nil
}

func (m *mockAdapter) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUser"); err != nil {
		return nil, err
	}
	rec, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (m *mockAdapter) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUserByEmail"); err != nil {
		return nil, err
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *mockAdapter) UpdateUser(_ context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateUser"); err != nil {
		return nil, err
	}
	prev, ok := m.users[user.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if prev.Email != user.Email {
		delete(m.byEmail, prev.Email)
		if user.Email != "" {
			m.byEmail[user.Email] = user.ID
		}
	}
	rec := *user
	m.users[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (m *mockAdapter) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteUser"); err != nil {
		return err
	}
	rec, ok := m.users[id]
	if !ok {
		return ErrNotFound
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

func (m *mockAdapter) CreateSession(_ context.Context, session *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateSession"); err != nil {
		return nil, err
	}
	rec := *session
	rec.ID = m.id("sess")
	rec.CreatedAt = time.Now()
	m.sessions[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (m *mockAdapter) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetSession"); err != nil {
		return nil, err
	}
	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (m *mockAdapter) UpdateSession(_ context.Context, session *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateSession"); err != nil {
		return nil, err
	}
	if _, ok := m.sessions[session.ID]; !ok {
		return nil, ErrNotFound
	}
	rec := *session
	m.sessions[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (m *mockAdapter) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteSession"); err != nil {
		return err
	}
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockAdapter) CreateVerificationToken(_ context.Context, token *VerificationToken) (*VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateVerificationToken"); err != nil {
		return nil, err
	}
	rec := *token
	rec.CreatedAt = time.Now()
	m.tokens = append(m.tokens, &rec)
	out := rec
	return &out, nil
}

func (m *mockAdapter) UseVerificationToken(_ context.Context, identifier, tokenHash string, purpose TokenPurpose) (*VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UseVerificationToken"); err != nil {
		return nil, err
	}
	for i, rec := range m.tokens {
		if rec.Identifier == identifier && rec.TokenHash == tokenHash && rec.Purpose == purpose {
			out := *rec
			m.tokens = append(m.tokens[:i], m.tokens[i+1:]...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAdapter) DeleteVerificationTokens(_ context.Context, identifier string, purpose TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteVerificationTokens"); err != nil {
		return err
	}
	kept := m.tokens[:0]
	for _, rec := range m.tokens {
		if rec.Identifier != identifier || rec.Purpose != purpose {
			kept = append(kept, rec)
		}
	}
	m.tokens = kept
	return nil
}

func (m *mockAdapter) LinkAccount(_ context.Context, account *Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LinkAccount"); err != nil {
		return nil, err
	}
	key := account.Provider + "/" + account.ProviderAccountID
	if _, ok := m.accounts[key]; ok {
		return nil, fmt.Errorf("account %s already linked", key)
	}
	rec := *account
	rec.CreatedAt = time.Now()
	m.accounts[key] = &rec
	out := rec
	return &out, nil
}

func (m *mockAdapter) GetAccountByProvider(_ context.Context, provider, providerAccountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetAccountByProvider"); err != nil {
		return nil, err
	}
	rec, ok := m.accounts[provider+"/"+providerAccountID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

var _ Adapter = (*mockAdapter)(nil)
