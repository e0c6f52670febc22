package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a new Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return client, nil
}

// RedisStore implements PreferenceStorer on top of Redis string keys.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(profile, key string) string {
	return "prefs:" + profile + ":" + key
}

func (s *RedisStore) GetPreference(ctx context.Context, profile, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKey(profile, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("store: GetPreference failed: %w", err)
	}
	return value, nil
}

func (s *RedisStore) PutPreference(ctx context.Context, profile, key string, value []byte) error {
	// Preferences outlive sessions, so no expiry.
	if err := s.client.Set(ctx, redisKey(profile, key), value, 0).Err(); err != nil {
		return fmt.Errorf("store: PutPreference failed: %w", err)
	}
	return nil
}

func (s *RedisStore) DeletePreference(ctx context.Context, profile, key string) error {
	n, err := s.client.Del(ctx, redisKey(profile, key)).Result()
	if err != nil {
		return fmt.Errorf("store: DeletePreference failed: %w", err)
	}
	if n == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
