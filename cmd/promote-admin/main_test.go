package main

import (
	"context"
	"errors"
	"testing"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) SetRole(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	args := m.Called(ctx, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) RevokeAllAccountTokens(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func TestSetRole_RevokesSessions(t *testing.T) {
	accounts := new(mockAccounts)
	tokens := new(mockTokens)
	id := uuid.New()

	accounts.On("SetRole", mock.Anything, "cara@example.com", models.RoleCreator).
		Return(&models.Account{ID: id, Email: "cara@example.com", Role: models.RoleCreator}, nil)
	tokens.On("RevokeAllAccountTokens", mock.Anything, id).Return(nil)

	account, err := setRole(context.Background(), accounts, tokens, "cara@example.com", models.RoleCreator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCreator, account.Role)

	accounts.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestSetRole_UnknownAccount(t *testing.T) {
	accounts := new(mockAccounts)
	tokens := new(mockTokens)

	accounts.On("SetRole", mock.Anything, "ghost@example.com", models.RoleAdmin).
		Return(nil, services.ErrAccountNotFound)

	_, err := setRole(context.Background(), accounts, tokens, "ghost@example.com", models.RoleAdmin)
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
	tokens.AssertNotCalled(t, "RevokeAllAccountTokens", mock.Anything, mock.Anything)
}

func TestSetRole_RevokeFailure(t *testing.T) {
	accounts := new(mockAccounts)
	tokens := new(mockTokens)
	id := uuid.New()

	accounts.On("SetRole", mock.Anything, "cara@example.com", models.RoleAdmin).
		Return(&models.Account{ID: id, Email: "cara@example.com", Role: models.RoleAdmin}, nil)
	tokens.On("RevokeAllAccountTokens", mock.Anything, id).Return(errors.New("connection reset"))

	account, err := setRole(context.Background(), accounts, tokens, "cara@example.com", models.RoleAdmin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions were not revoked")
	assert.Equal(t, id, account.ID)
}
