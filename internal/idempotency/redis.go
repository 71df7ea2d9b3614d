package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// RedisStore implements Store on Redis. A claim is a SET NX of an
// uncompleted record; completion overwrites it.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed idempotency store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Begin(ctx context.Context, key, fingerprint string, lockTTL time.Duration) (*Record, bool, error) {
	pending, err := json.Marshal(Record{Fingerprint: fingerprint})
	if err != nil {
		return nil, false, fmt.Errorf("marshal idempotency claim: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; the caller may retry.
			return nil, false, ErrInProgress
		}
		return nil, false, fmt.Errorf("redis get idempotency key: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	if !rec.Completed {
		return &rec, false, ErrInProgress
	}
	return &rec, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	rec.Completed = true
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del idempotency key: %w", err)
	}
	return nil
}
