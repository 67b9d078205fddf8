package services

import (
	"context"
	"testing"
	"time"

	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{
	"id", "email", "name", "photo_url", "password_hash", "provider", "provider_id", "role", "created_at", "updated_at",
}

func setupAccountService(t *testing.T) (*AccountService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewAccountService(db), mock
}

func TestAccountService_CreateWithPassword(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	accountID := uuid.New()
	now := time.Now()
	hash := "$2a$10$hash"

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, "jane@example.com", "Jane", nil, &hash, ProviderPassword, "jane@example.com", "user", now, now)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("jane@example.com", "Jane", (*string)(nil), hash, ProviderPassword).
		WillReturnRows(rows)

	account, err := svc.CreateWithPassword(ctx, "jane@example.com", "Jane", hash, nil)

	require.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.Nil(t, account.PhotoURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_CreateWithPassword_EmailTaken(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("jane@example.com", "Jane", (*string)(nil), "hash", ProviderPassword).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.CreateWithPassword(ctx, "jane@example.com", "Jane", "hash", nil)

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_FindOrCreateFromOAuth_CreateNew(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "new@example.com",
		Name:      "New User",
		AvatarURL: "https://example.com/avatar.png",
		ID:        "google-123",
		Provider:  "google",
	}
	accountID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(pgx.ErrNoRows)

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, info.Email, info.Name, &info.AvatarURL, nil, info.Provider, info.ID, "user", now, now)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, info.Provider, info.ID).
		WillReturnRows(rows)

	account, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, info.Email, account.Email)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_FindOrCreateFromOAuth_FindExisting(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "existing@example.com",
		Name:      "Existing User",
		AvatarURL: "https://example.com/avatar.png",
		ID:        "google-456",
		Provider:  "google",
	}
	accountID := uuid.New()
	now := time.Now()
	photo := "https://example.com/avatar.png"

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, info.Email, info.Name, &photo, nil, info.Provider, info.ID, "admin", now, now)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(rows)

	account, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_FindOrCreateFromOAuth_UpdateExisting(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	info := &oauth.UserInfo{
		Email:     "updated@example.com",
		Name:      "Updated Name",
		AvatarURL: "https://example.com/new-avatar.png",
		ID:        "google-789",
		Provider:  "google",
	}
	accountID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, "old@example.com", "Old Name", nil, nil, info.Provider, info.ID, "user", now, now)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(rows)

	mock.ExpectExec(`UPDATE accounts SET email = .+, name = .+, photo_url`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	account, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, info.Email, account.Email)
	assert.Equal(t, info.Name, account.Name)
	require.NotNil(t, account.PhotoURL)
	assert.Equal(t, info.AvatarURL, *account.PhotoURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_GetByEmail(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	accountID := uuid.New()
	email := "find@example.com"
	now := time.Now()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, email, "Test User", nil, nil, "google", "123", "creator", now, now)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email`).
		WithArgs(email).
		WillReturnRows(rows)

	account, err := svc.GetByEmail(ctx, email)

	require.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, models.RoleCreator, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_GetByEmail_NotFound(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByEmail(ctx, "nobody@example.com")

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id`).
		WithArgs(accountID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(ctx, accountID)

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_UpdateProfile(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	accountID := uuid.New()
	newName := "New Name"
	now := time.Now()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, "test@example.com", newName, nil, nil, "google", "123", "user", now, now)

	mock.ExpectQuery(`UPDATE accounts SET name = COALESCE`).
		WithArgs(&newName, (*string)(nil), accountID).
		WillReturnRows(rows)

	account, err := svc.UpdateProfile(ctx, accountID, &newName, nil)

	require.NoError(t, err)
	assert.Equal(t, newName, account.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_SetRole(t *testing.T) {
	svc, mock := setupAccountService(t)
	ctx := context.Background()
	accountID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(accountID, "boss@example.com", "Boss", nil, nil, "google", "1", "admin", now, now)

	mock.ExpectQuery(`UPDATE accounts SET role`).
		WithArgs("admin", "boss@example.com").
		WillReturnRows(rows)

	account, err := svc.SetRole(ctx, "boss@example.com", models.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountService_SetRole_Invalid(t *testing.T) {
	svc, mock := setupAccountService(t)

	_, err := svc.SetRole(context.Background(), "boss@example.com", models.Role("root"))

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
