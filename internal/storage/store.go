// Package storage holds the Persisted Record: the bearer token and the cached user that
// survive a restart. The two keys are always written and cleared together.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/contesthub/contesthub/internal/models"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

var ErrIncompleteRecord = errors.New("incomplete record")

type Record struct {
	Token string
	User  models.User
}

func (r Record) validate() error {
	if r.Token == "" {
		return fmt.Errorf("%w: empty token", ErrIncompleteRecord)
	}
	if r.User.ID == "" {
		return fmt.Errorf("%w: user without id", ErrIncompleteRecord)
	}
	return nil
}

// Store persists the record. Load returns nil, nil when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
	Token(ctx context.Context) (string, error)
}

// decodeRecord turns the raw key values into a Record. A half-present pair reports
// ErrIncompleteRecord so the caller can repair it.
func decodeRecord(token, user string, hasToken, hasUser bool) (*Record, error) {
	if !hasToken && !hasUser {
		return nil, nil
	}
	if !hasToken || !hasUser || token == "" {
		return nil, ErrIncompleteRecord
	}

	var u models.User
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		return nil, fmt.Errorf("%w: decode user: %v", ErrIncompleteRecord, err)
	}

	rec := &Record{Token: token, User: u}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func encodeUser(u models.User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(data), nil
}

// loadRepairing clears a half-written record and reports it as absent.
func loadRepairing(ctx context.Context, s Store, rec *Record, err error) (*Record, error) {
	if errors.Is(err, ErrIncompleteRecord) {
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("repair incomplete record: %w", clearErr)
		}
		return nil, nil
	}
	return rec, err
}
