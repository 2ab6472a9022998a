package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// RedisSessionStateStore implements domain.SessionStateStore on Redis. Each
// cookie session is one JSON value under prefix+id with a sliding TTL.
type RedisSessionStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStateStore creates a store that keeps each state for ttl
// after its last save.
func NewRedisSessionStateStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStateStore {
	return &RedisSessionStateStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStateStore) key(id string) string {
	return s.prefix + id
}

// Load returns the state saved under id.
// Returns (nil, nil) when id is unknown or has expired.
func (s *RedisSessionStateStore) Load(ctx context.Context, id string) (*domain.SessionState, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// Save stores state under id and refreshes its TTL.
func (s *RedisSessionStateStore) Save(ctx context.Context, id string, state domain.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return s.client.Set(ctx, s.key(id), raw, s.ttl).Err()
}

// Delete removes id.
func (s *RedisSessionStateStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
