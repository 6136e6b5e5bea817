package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "giftspa:session:"

// RedisStore is a Store backed by Redis string keys with a sliding TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing client; ttl <= 0 uses DefaultTTL.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get reads key; a missing key is reported as absent, not as an error.
func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: get: %w", err)
	}
	return raw, true, nil
}

// Set writes key with the store TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	if errSet := s.client.Set(ctx, keyPrefix+key, []byte(value), s.ttl).Err(); errSet != nil {
		return fmt.Errorf("session: set: %w", errSet)
	}
	return nil
}

// Remove deletes key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if errDel := s.client.Del(ctx, keyPrefix+key).Err(); errDel != nil {
		return fmt.Errorf("session: remove: %w", errDel)
	}
	return nil
}
