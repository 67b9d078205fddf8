package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the record in Redis. Pair writes run inside MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "contesthub"
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger.Named("storage")}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	values, err := s.client.MGet(ctx, s.key(KeyToken), s.key(KeyUser)).Result()
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	token, hasToken := values[0].(string)
	user, hasUser := values[1].(string)

	rec, err := decodeRecord(token, user, hasToken, hasUser)
	if errors.Is(err, ErrIncompleteRecord) {
		s.logger.Warn("clearing incomplete persisted record", zap.Error(err))
	}
	return loadRepairing(ctx, s, rec, err)
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	user, err := encodeUser(rec.User)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyToken), rec.Token, 0)
		pipe.Set(ctx, s.key(KeyUser), user, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(KeyToken), s.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("clear record: %w", err)
	}
	return nil
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	rec, err := s.Load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

func (s *RedisStore) credentialKey(provider string) string {
	return s.key("credentials:" + provider)
}

func (s *RedisStore) LoadRefreshToken(ctx context.Context, provider string) (string, error) {
	token, err := s.client.Get(ctx, s.credentialKey(provider)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) SaveRefreshToken(ctx context.Context, provider, token string) error {
	if err := s.client.Set(ctx, s.credentialKey(provider), token, 0).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearRefreshToken(ctx context.Context, provider string) error {
	if err := s.client.Del(ctx, s.credentialKey(provider)).Err(); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
