// Package gorm implements the Adapter contract on top of a gorm.DB, for
// any relational backend GORM supports.
package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/authkit-go/authkit"
)

// AutoMigrate creates or updates the authkit tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&SessionModel{},
		&VerificationTokenModel{},
		&AccountModel{},
	)
}

// Adapter implements authkit.Adapter using GORM.
type Adapter struct {
	db *gorm.DB
}

var _ authkit.Adapter = (*Adapter)(nil)

func NewAdapter(db *gorm.DB) *Adapter {
	return &Adapter{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return authkit.ErrNotFound
	}
	return err
}

func (a *Adapter) CreateUser(ctx context.Context, user *authkit.User) (*authkit.User, error) {
	model := userModel(user)
	model.ID = uuid.NewString()
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*authkit.User, error) {
	var model UserModel
	if err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*authkit.User, error) {
	var model UserModel
	if err := a.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToUser(), nil
}

func (a *Adapter) UpdateUser(ctx context.Context, user *authkit.User) (*authkit.User, error) {
	model := userModel(user)
	res := a.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", model.ID).Updates(map[string]any{
		"email":          model.Email,
		"email_verified": model.EmailVerified,
		"name":           model.Name,
		"image":          model.Image,
		"password_hash":  model.PasswordHash,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, authkit.ErrNotFound
	}
	return a.GetUser(ctx, model.ID)
}

// DeleteUser removes the user and cascades to its accounts and sessions
// in one transaction.
func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&UserModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Delete(&AccountModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&SessionModel{}, "user_id = ?", id).Error
	})
	return notFound(err)
}

func (a *Adapter) CreateSession(ctx context.Context, session *authkit.Session) (*authkit.Session, error) {
	model := &SessionModel{
		ID:        uuid.NewString(),
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		Rolling:   session.Rolling,
	}
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

func (a *Adapter) GetSession(ctx context.Context, id string) (*authkit.Session, error) {
	var model SessionModel
	if err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToSession(), nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session *authkit.Session) (*authkit.Session, error) {
	res := a.db.WithContext(ctx).Model(&SessionModel{}).Where("id = ?", session.ID).Updates(map[string]any{
		"expires_at": session.ExpiresAt,
		"rolling":    session.Rolling,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, authkit.ErrNotFound
	}
	return a.GetSession(ctx, session.ID)
}

func (a *Adapter) DeleteSession(ctx context.Context, id string) error {
	res := a.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return authkit.ErrNotFound
	}
	return nil
}

func (a *Adapter) CreateVerificationToken(ctx context.Context, token *authkit.VerificationToken) (*authkit.VerificationToken, error) {
	model := &VerificationTokenModel{
		Identifier: token.Identifier,
		TokenHash:  token.TokenHash,
		Purpose:    string(token.Purpose),
		ExpiresAt:  token.ExpiresAt,
		CreatedAt:  time.Now(),
	}
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToToken(), nil
}

// UseVerificationToken reads and deletes the matching token in a single
// transaction. The lookup is keyed on (identifier, token_hash, purpose)
// and the delete's RowsAffected decides the race: of two concurrent
// consumers exactly one sees a row deleted, the other gets ErrNotFound.
func (a *Adapter) UseVerificationToken(ctx context.Context, identifier, tokenHash string, purpose authkit.TokenPurpose) (*authkit.VerificationToken, error) {
	var model VerificationTokenModel
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "identifier = ? AND token_hash = ? AND purpose = ?", identifier, tokenHash, string(purpose)).Error; err != nil {
			return err
		}
		res := tx.Delete(&VerificationTokenModel{}, "id = ?", model.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToToken(), nil
}

func (a *Adapter) DeleteVerificationTokens(ctx context.Context, identifier string, purpose authkit.TokenPurpose) error {
	return a.db.WithContext(ctx).
		Delete(&VerificationTokenModel{}, "identifier = ? AND purpose = ?", identifier, string(purpose)).Error
}

func (a *Adapter) LinkAccount(ctx context.Context, account *authkit.Account) (*authkit.Account, error) {
	model := &AccountModel{
		UserID:            account.UserID,
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		AccessToken:       account.AccessToken,
		RefreshToken:      account.RefreshToken,
		TokenExpiresAt:    account.TokenExpiresAt,
	}
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (a *Adapter) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*authkit.Account, error) {
	var model AccountModel
	if err := a.db.WithContext(ctx).
		First(&model, "provider = ? AND provider_account_id = ?", provider, providerAccountID).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToAccount(), nil
}
