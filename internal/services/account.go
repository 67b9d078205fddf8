package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ProviderPassword = "password"

	uniqueViolation = "23505"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already in use")
)

const accountColumns = `id, email, name, photo_url, password_hash, provider, provider_id, role, created_at, updated_at`

type AccountService struct {
	db *database.DB
}

func NewAccountService(db *database.DB) *AccountService {
	return &AccountService{db: db}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var role string
	if err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.PhotoURL, &a.PasswordHash,
		&a.Provider, &a.ProviderID, &role, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateWithPassword registers an email/password account. passwordHash must already be a bcrypt
// hash; the account starts with the user role.
func (s *AccountService) CreateWithPassword(ctx context.Context, email, name, passwordHash string, photoURL *string) (*models.Account, error) {
	account, err := scanAccount(s.db.Pool.QueryRow(ctx, `
		INSERT INTO accounts (email, name, photo_url, password_hash, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5, $1)
		RETURNING `+accountColumns,
		email, name, photoURL, passwordHash, ProviderPassword,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *AccountService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.Account, error) {
	account, err := scanAccount(s.db.Pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider = $1 AND provider_id = $2
	`, info.Provider, info.ID))

	if err == nil {
		if account.Email != info.Email || account.Name != info.Name || (account.PhotoURL == nil && info.AvatarURL != "") {
			_, _ = s.db.Pool.Exec(ctx, `
				UPDATE accounts SET email = $1, name = $2, photo_url = COALESCE($3, photo_url), updated_at = NOW()
				WHERE id = $4
			`, info.Email, info.Name, nullableString(info.AvatarURL), account.ID)
			account.Email = info.Email
			account.Name = info.Name
			if info.AvatarURL != "" {
				account.PhotoURL = &info.AvatarURL
			}
		}
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	account, err = scanAccount(s.db.Pool.QueryRow(ctx, `
		INSERT INTO accounts (email, name, photo_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		info.Email, info.Name, nullableString(info.AvatarURL), info.Provider, info.ID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(s.db.Pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1
	`, id))
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(s.db.Pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE email = $1
	`, email))
}

// UpdateProfile changes only the non-nil fields.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, name, photoURL *string) (*models.Account, error) {
	return scanAccount(s.db.Pool.QueryRow(ctx, `
		UPDATE accounts SET name = COALESCE($1, name), photo_url = COALESCE($2, photo_url), updated_at = NOW()
		WHERE id = $3
		RETURNING `+accountColumns,
		name, photoURL, id,
	))
}

func (s *AccountService) SetRole(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	return scanAccount(s.db.Pool.QueryRow(ctx, `
		UPDATE accounts SET role = $1, updated_at = NOW()
		WHERE email = $2
		RETURNING `+accountColumns,
		string(role), email,
	))
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
