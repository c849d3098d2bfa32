// Package redis persists idempotency records in Redis. Expiry rides on the
// key TTL, so DeleteExpired has nothing to do here.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mintgate/internal/idempotency"
	"mintgate/pkg/platform/sentinel"
)

const keyPrefix = "mintgate:idem:"

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

type payload struct {
	Result    json.RawMessage `json:"result"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &idempotency.Record{Key: key, Result: p.Result, ExpiresAt: p.ExpiresAt}, nil
}

func (s *Store) Put(ctx context.Context, rec idempotency.Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("idempotency record already expired")
	}
	raw, err := json.Marshal(payload{Result: rec.Result, ExpiresAt: rec.ExpiresAt})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	set, err := s.client.SetNX(ctx, keyPrefix+rec.Key, raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("put idempotency record: %w", err)
	}
	if !set {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
