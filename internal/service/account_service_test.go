package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService() (*AccountService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	svc := NewAccountService(store.NewMemoryStore(), tokens, AdminCredentials{
		ID:       "admin",
		Email:    "admin@shop.test",
		Password: "letmein",
	})
	return svc, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newAccountService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "ana", "Ana@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = svc.Register(ctx, "ana2", "ana@example.com", "secret2")
	assert.ErrorIs(t, err, ErrConflict)

	res, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, res.Admin)

	id, err := tokens.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)

	_, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "x", "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "x", "x@example.com", "123")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "x", "admin@shop.test", "secret1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdminLogin(t *testing.T) {
	svc, tokens := newAccountService()
	ctx := context.Background()

	res, err := svc.Login(ctx, "admin@shop.test", "letmein")
	require.NoError(t, err)
	assert.True(t, res.Admin)
	id, err := tokens.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", id.UserID)
	assert.True(t, id.Admin)

	_, err = svc.Login(ctx, "admin@shop.test", "nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh(t *testing.T) {
	svc, tokens := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	res, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	id, err := tokens.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", id.Email)

	_, err = svc.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
