package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contesthub/contesthub/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRefreshTokenNotFound covers unknown, revoked and expired refresh tokens alike.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// TokenService keeps the hashes of the local provider's refresh tokens. Raw tokens never reach
// the database.
type TokenService struct {
	db *database.DB
}

func NewTokenService(db *database.DB) *TokenService {
	return &TokenService{db: db}
}

func (s *TokenService) StoreRefreshToken(ctx context.Context, accountID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	if _, err := s.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (account_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, accountID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// ValidateRefreshToken returns the account holding an unexpired token with this hash.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		SELECT account_id FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return accountID, nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllAccountTokens ends every session of the account, e.g. after its role changed.
func (s *TokenService) RevokeAllAccountTokens(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to revoke account sessions: %w", err)
	}
	return nil
}

// CleanupExpired removes expired refresh tokens and reports how many were deleted.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
