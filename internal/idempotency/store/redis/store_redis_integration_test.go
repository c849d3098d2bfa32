//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/idempotency"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/testutil/containers"
)

// ---------------------------------------------------------------------------
// Redis idempotency store (integration)
// ---------------------------------------------------------------------------

type RedisStoreIntegrationSuite struct {
	suite.Suite

	ctx   context.Context
	redis *containers.RedisContainer
	store *Store
}

func TestRedisStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	suite.Run(t, &RedisStoreIntegrationSuite{redis: containers.NewRedisContainer(t)})
}

func (s *RedisStoreIntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = New(s.redis.Client)
}

func (s *RedisStoreIntegrationSuite) record(key string, ttl time.Duration) idempotency.Record {
	return idempotency.Record{
		Key:       key,
		Result:    json.RawMessage(`{"ok":true}`),
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (s *RedisStoreIntegrationSuite) TestPutAndGet() {
	rec := s.record("op-1", time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "op-1")
	s.Require().NoError(err)
	s.JSONEq(`{"ok":true}`, string(got.Result))
	s.WithinDuration(rec.ExpiresAt, got.ExpiresAt, time.Second)
}

func (s *RedisStoreIntegrationSuite) TestUnknownKeyIsNotFound() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreIntegrationSuite) TestFirstWriterWins() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("op-2", time.Minute)))

	second := s.record("op-2", time.Minute)
	second.Result = json.RawMessage(`{"ok":false}`)
	s.ErrorIs(s.store.Put(s.ctx, second), sentinel.ErrConflict)

	got, err := s.store.Get(s.ctx, "op-2")
	s.Require().NoError(err)
	s.JSONEq(`{"ok":true}`, string(got.Result))
}

func (s *RedisStoreIntegrationSuite) TestExpiryRidesOnTheKeyTTL() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("op-3", 500*time.Millisecond)))

	time.Sleep(time.Second)
	_, err := s.store.Get(s.ctx, "op-3")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The slot is reusable once expired.
	s.NoError(s.store.Put(s.ctx, s.record("op-3", time.Minute)))
}
