package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/authkit-go/authkit"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return NewAdapter(db)
}

func TestUserCRUD(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	user, err := adapter.CreateUser(ctx, &authkit.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "hash1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	got, err := adapter.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.False(t, got.EmailVerified)

	byEmail, err := adapter.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	got.EmailVerified = true
	got.Name = "Alice B"
	updated, err := adapter.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)
	assert.Equal(t, "Alice B", updated.Name)

	_, err = adapter.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, authkit.ErrNotFound)

	_, err = adapter.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, authkit.ErrNotFound)
}

func TestDuplicateEmailRejected(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	_, err := adapter.CreateUser(ctx, &authkit.User{Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = adapter.CreateUser(ctx, &authkit.User{Email: "dup@example.com"})
	assert.Error(t, err)
}

func TestUpdateMissingUser(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.UpdateUser(context.Background(), &authkit.User{ID: "nope", Email: "x@example.com"})
	assert.ErrorIs(t, err, authkit.ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	user, err := adapter.CreateUser(ctx, &authkit.User{Email: "gone@example.com"})
	require.NoError(t, err)

	sess, err := adapter.CreateSession(ctx, &authkit.Session{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = adapter.LinkAccount(ctx, &authkit.Account{
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: "ext-1",
	})
	require.NoError(t, err)

	require.NoError(t, adapter.DeleteUser(ctx, user.ID))

	_, err = adapter.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, authkit.ErrNotFound)
	_, err = adapter.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, authkit.ErrNotFound)
	_, err = adapter.GetAccountByProvider(ctx, "google", "ext-1")
	assert.ErrorIs(t, err, authkit.ErrNotFound)

	assert.ErrorIs(t, adapter.DeleteUser(ctx, user.ID), authkit.ErrNotFound)
}

func TestSessionCRUD(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	user, err := adapter.CreateUser(ctx, &authkit.User{Email: "sess@example.com"})
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	sess, err := adapter.CreateSession(ctx, &authkit.Session{
		UserID:    user.ID,
		ExpiresAt: expiry,
		Rolling:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := adapter.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.Rolling)
	assert.WithinDuration(t, expiry, got.ExpiresAt, time.Second)

	got.ExpiresAt = expiry.Add(time.Hour)
	updated, err := adapter.UpdateSession(ctx, got)
	require.NoError(t, err)
	assert.WithinDuration(t, expiry.Add(time.Hour), updated.ExpiresAt, time.Second)

	require.NoError(t, adapter.DeleteSession(ctx, sess.ID))
	_, err = adapter.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, authkit.ErrNotFound)
	assert.ErrorIs(t, adapter.DeleteSession(ctx, sess.ID), authkit.ErrNotFound)
}

func TestUseVerificationTokenConsumesOnce(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	tok, err := adapter.CreateVerificationToken(ctx, &authkit.VerificationToken{
		Identifier: "alice@example.com",
		Purpose:    authkit.PurposeEmailVerification,
		TokenHash:  "deadbeef",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, authkit.PurposeEmailVerification, tok.Purpose)

	used, err := adapter.UseVerificationToken(ctx, "alice@example.com", "deadbeef", authkit.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", used.TokenHash)

	_, err = adapter.UseVerificationToken(ctx, "alice@example.com", "deadbeef", authkit.PurposeEmailVerification)
	assert.ErrorIs(t, err, authkit.ErrNotFound)
}

func TestUseVerificationTokenScopedByPurpose(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	_, err := adapter.CreateVerificationToken(ctx, &authkit.VerificationToken{
		Identifier: "alice@example.com",
		Purpose:    authkit.PurposePasswordReset,
		TokenHash:  "feedface",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// A wrong-purpose attempt neither matches nor removes the row.
	_, err = adapter.UseVerificationToken(ctx, "alice@example.com", "feedface", authkit.PurposeEmailVerification)
	assert.ErrorIs(t, err, authkit.ErrNotFound)

	used, err := adapter.UseVerificationToken(ctx, "alice@example.com", "feedface", authkit.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, authkit.PurposePasswordReset, used.Purpose)
}

func TestDeleteVerificationTokensByPurpose(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	for _, purpose := range []authkit.TokenPurpose{authkit.PurposeEmailVerification, authkit.PurposePasswordReset} {
		_, err := adapter.CreateVerificationToken(ctx, &authkit.VerificationToken{
			Identifier: "bob@example.com",
			Purpose:    purpose,
			TokenHash:  "hash-" + string(purpose),
			ExpiresAt:  time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
	}

	require.NoError(t, adapter.DeleteVerificationTokens(ctx, "bob@example.com", authkit.PurposePasswordReset))

	_, err := adapter.UseVerificationToken(ctx, "bob@example.com", "hash-"+string(authkit.PurposePasswordReset), authkit.PurposePasswordReset)
	assert.ErrorIs(t, err, authkit.ErrNotFound)

	_, err = adapter.UseVerificationToken(ctx, "bob@example.com", "hash-"+string(authkit.PurposeEmailVerification), authkit.PurposeEmailVerification)
	assert.NoError(t, err)
}

func TestLinkAccountUniqueness(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	user, err := adapter.CreateUser(ctx, &authkit.User{Email: "link@example.com"})
	require.NoError(t, err)

	_, err = adapter.LinkAccount(ctx, &authkit.Account{
		UserID:            user.ID,
		Provider:          "github",
		ProviderAccountID: "42",
		AccessToken:       "at",
		RefreshToken:      "rt",
	})
	require.NoError(t, err)

	got, err := adapter.GetAccountByProvider(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "at", got.AccessToken)

	_, err = adapter.LinkAccount(ctx, &authkit.Account{
		UserID:            user.ID,
		Provider:          "github",
		ProviderAccountID: "42",
	})
	assert.Error(t, err)
}
