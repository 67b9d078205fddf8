package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS persisted_record (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS provider_credentials (
		provider TEXT PRIMARY KEY,
		refresh_token TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteStore keeps the record in a local SQLite file. Use ":memory:" in tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.Named("storage"),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM persisted_record WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	defer rows.Close()

	var token, user string
	var hasToken, hasUser bool
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		switch key {
		case KeyToken:
			token, hasToken = value, true
		case KeyUser:
			user, hasUser = value, true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	rec, err := decodeRecord(token, user, hasToken, hasUser)
	if errors.Is(err, ErrIncompleteRecord) {
		s.logger.Warn("clearing incomplete persisted record", zap.Error(err))
	}
	return loadRepairing(ctx, s, rec, err)
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	user, err := encodeUser(rec.User)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		const upsert = `INSERT INTO persisted_record (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, upsert, KeyToken, rec.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsert, KeyUser, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM persisted_record WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
			return fmt.Errorf("clear record: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	rec, err := s.Load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

func (s *SQLiteStore) LoadRefreshToken(ctx context.Context, provider string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT refresh_token FROM provider_credentials WHERE provider = ?`, provider).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	return token, nil
}

func (s *SQLiteStore) SaveRefreshToken(ctx context.Context, provider, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_credentials (provider, refresh_token, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = CURRENT_TIMESTAMP
	`, provider, token)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearRefreshToken(ctx context.Context, provider string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM provider_credentials WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// setRaw writes one key outside the pair contract; tests use it to simulate a torn write.
func (s *SQLiteStore) setRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO persisted_record (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
