package integration

import (
	"context"
	"testing"
	"time"

	"github.com/contesthub/contesthub/internal/services"
	"github.com/contesthub/contesthub/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Integration_StoreAndValidate(t *testing.T) {
	skipShort(t)

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	account := fixtures.CreateAccount(t)
	tokenHash := services.HashToken("my-refresh-token")

	err := svc.StoreRefreshToken(ctx, account.ID, tokenHash, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	accountID, err := svc.ValidateRefreshToken(ctx, tokenHash)
	require.NoError(t, err)
	assert.Equal(t, account.ID, accountID)
}

func TestTokenService_Integration_ValidateExpired(t *testing.T) {
	skipShort(t)

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	account := fixtures.CreateAccount(t)
	tokenHash := services.HashToken("expired-token")

	err := svc.StoreRefreshToken(ctx, account.ID, tokenHash, time.Now().Add(-1*time.Hour))
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(ctx, tokenHash)
	assert.Error(t, err)
}

func TestTokenService_Integration_Revoke(t *testing.T) {
	skipShort(t)

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	account := fixtures.CreateAccount(t)
	first := services.HashToken("first")
	second := services.HashToken("second")
	expiresAt := time.Now().Add(24 * time.Hour)
	require.NoError(t, svc.StoreRefreshToken(ctx, account.ID, first, expiresAt))
	require.NoError(t, svc.StoreRefreshToken(ctx, account.ID, second, expiresAt))

	require.NoError(t, svc.RevokeRefreshToken(ctx, first))
	_, err := svc.ValidateRefreshToken(ctx, first)
	assert.Error(t, err)
	_, err = svc.ValidateRefreshToken(ctx, second)
	assert.NoError(t, err)

	require.NoError(t, svc.RevokeAllAccountTokens(ctx, account.ID))
	_, err = svc.ValidateRefreshToken(ctx, second)
	assert.Error(t, err)
}

func TestTokenService_Integration_CleanupExpired(t *testing.T) {
	skipShort(t)

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTokenService(tdb.DB)
	ctx := context.Background()

	account := fixtures.CreateAccount(t)
	require.NoError(t, svc.StoreRefreshToken(ctx, account.ID, services.HashToken("old-1"), time.Now().Add(-2*time.Hour)))
	require.NoError(t, svc.StoreRefreshToken(ctx, account.ID, services.HashToken("old-2"), time.Now().Add(-1*time.Hour)))
	require.NoError(t, svc.StoreRefreshToken(ctx, account.ID, services.HashToken("live"), time.Now().Add(time.Hour)))

	purged, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	_, err = svc.ValidateRefreshToken(ctx, services.HashToken("live"))
	assert.NoError(t, err)
}
