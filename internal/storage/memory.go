package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. The identity provider credential cache
// lives alongside it.
type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string]string
	credentials map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:      make(map[string]string),
		credentials: make(map[string]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context) (*Record, error) {
	s.mu.RLock()
	token, hasToken := s.values[KeyToken]
	user, hasUser := s.values[KeyUser]
	s.mu.RUnlock()

	rec, err := decodeRecord(token, user, hasToken, hasUser)
	return loadRepairing(ctx, s, rec, err)
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	user, err := encodeUser(rec.User)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyToken] = rec.Token
	s.values[KeyUser] = user
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeyToken)
	delete(s.values, KeyUser)
	return nil
}

func (s *MemoryStore) Token(ctx context.Context) (string, error) {
	rec, err := s.Load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

// Set writes a single raw key. It exists so tests can reproduce a torn write.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Has reports whether a raw key is present.
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

func (s *MemoryStore) LoadRefreshToken(_ context.Context, provider string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials[provider], nil
}

func (s *MemoryStore) SaveRefreshToken(_ context.Context, provider, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[provider] = token
	return nil
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, provider)
	return nil
}
