package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/logger"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

func newAuthService(t *testing.T) *AuthService {
	db := newTestDB(t)
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	return NewAuthService(db, store.NewUserStore(db), store.NewWalletStore(db), config.AuthConfig{
		Secret:    "test-secret",
		Issuer:    "wallet-service",
		Audience:  "wallet-api",
		AccessTTL: config.Duration(time.Hour),
	}, log)
}

func TestSignupAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, "ada@example.com", "s3cret-pass", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)

	// the signup transaction also provisioned an empty wallet
	var w model.Wallet
	require.NoError(t, svc.db.First(&w, "owner_id = ?", user.ID).Error)
	assert.True(t, w.Balance.IsZero())

	got, _, err := svc.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "ada@example.com", "s3cret-pass", "Ada", "Lovelace")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "ada@example.com", "another-pass", "Ada", "Byron")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestVerifyToken(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, "ada@example.com", "s3cret-pass", "Ada", "Lovelace")
	require.NoError(t, err)

	ownerID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ownerID)

	_, err = svc.VerifyToken(token + "tampered")
	assert.Error(t, err)
}
