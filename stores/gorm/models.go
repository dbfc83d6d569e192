package gorm

import (
	"time"

	"github.com/authkit-go/authkit"
)

// UserModel is the GORM table for users.
type UserModel struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;default:null"`
	EmailVerified bool
	Name          string
	Image         string
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (UserModel) TableName() string { return "authkit_users" }

func (m *UserModel) ToUser() *authkit.User {
	return &authkit.User{
		ID:            m.ID,
		Email:         m.Email,
		EmailVerified: m.EmailVerified,
		Name:          m.Name,
		Image:         m.Image,
		PasswordHash:  m.PasswordHash,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func userModel(u *authkit.User) *UserModel {
	return &UserModel{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Name:          u.Name,
		Image:         u.Image,
		PasswordHash:  u.PasswordHash,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// SessionModel is the GORM table for sessions.
type SessionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	ExpiresAt time.Time
	Rolling   bool
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "authkit_sessions" }

func (m *SessionModel) ToSession() *authkit.Session {
	return &authkit.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		Rolling:   m.Rolling,
		CreatedAt: m.CreatedAt,
	}
}

// VerificationTokenModel stores one-time tokens. Only the keyed hash of a
// token is ever written here.
type VerificationTokenModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Identifier string `gorm:"index:idx_authkit_token_lookup"`
	TokenHash  string `gorm:"index:idx_authkit_token_lookup"`
	Purpose    string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (VerificationTokenModel) TableName() string { return "authkit_verification_tokens" }

func (m *VerificationTokenModel) ToToken() *authkit.VerificationToken {
	return &authkit.VerificationToken{
		Identifier: m.Identifier,
		Purpose:    authkit.TokenPurpose(m.Purpose),
		TokenHash:  m.TokenHash,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}

// AccountModel links users to provider identities. The provider pair is
// the unique key.
type AccountModel struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	UserID            string `gorm:"index"`
	Provider          string `gorm:"uniqueIndex:idx_authkit_provider_account"`
	ProviderAccountID string `gorm:"uniqueIndex:idx_authkit_provider_account"`
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    time.Time
	CreatedAt         time.Time
}

func (AccountModel) TableName() string { return "authkit_accounts" }

func (m *AccountModel) ToAccount() *authkit.Account {
	return &authkit.Account{
		UserID:            m.UserID,
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		TokenExpiresAt:    m.TokenExpiresAt,
		CreatedAt:         m.CreatedAt,
	}
}
