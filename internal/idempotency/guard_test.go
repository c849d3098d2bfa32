package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Key derivation
// ---------------------------------------------------------------------------

type KeyTestSuite struct {
	suite.Suite
}

func TestKeyTestSuite(t *testing.T) {
	suite.Run(t, new(KeyTestSuite))
}

func (s *KeyTestSuite) TestFieldOrderDoesNotMatter() {
	a, err := Key("handoff.complete", json.RawMessage(`{"request_id":"r1","tx_hash":"h1"}`))
	s.Require().NoError(err)
	b, err := Key("handoff.complete", json.RawMessage(`{"tx_hash":"h1","request_id":"r1"}`))
	s.Require().NoError(err)
	s.Equal(a, b)
	s.Len(a, 64)
}

func (s *KeyTestSuite) TestDistinctInputsNeverCollide() {
	base, err := Key("handoff.complete", json.RawMessage(`{"request_id":"r1"}`))
	s.Require().NoError(err)

	s.Run("different payload", func() {
		other, err := Key("handoff.complete", json.RawMessage(`{"request_id":"r2"}`))
		s.Require().NoError(err)
		s.NotEqual(base, other)
	})

	s.Run("different operation", func() {
		other, err := Key("reconcile.append", json.RawMessage(`{"request_id":"r1"}`))
		s.Require().NoError(err)
		s.NotEqual(base, other)
	})
}

func (s *KeyTestSuite) TestStructPayload() {
	type req struct {
		RequestID string `json:"request_id"`
		TxHash    string `json:"tx_hash"`
	}
	a, err := Key("handoff.complete", req{RequestID: "r1", TxHash: "h1"})
	s.Require().NoError(err)
	b, err := Key("handoff.complete", json.RawMessage(`{"tx_hash":"h1","request_id":"r1"}`))
	s.Require().NoError(err)
	s.Equal(a, b)
}

// ---------------------------------------------------------------------------
// Guard
// ---------------------------------------------------------------------------

type GuardTestSuite struct {
	suite.Suite

	ctx   context.Context
	now   time.Time
	store *InMemoryStore
	guard *Guard
}

func TestGuardTestSuite(t *testing.T) {
	suite.Run(t, new(GuardTestSuite))
}

func (s *GuardTestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemoryStore()
	s.guard = NewGuard(s.store)
}

func (s *GuardTestSuite) TestRunsOnceAndReplays() {
	calls := 0
	op := func(context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"row":"created"}`), nil
	}

	result, dup, err := s.guard.Do(s.ctx, "k1", op)
	s.Require().NoError(err)
	s.False(dup)
	s.JSONEq(`{"row":"created"}`, string(result))

	result, dup, err = s.guard.Do(s.ctx, "k1", op)
	s.Require().NoError(err)
	s.True(dup)
	s.JSONEq(`{"row":"created"}`, string(result))
	s.Equal(1, calls)
}

func (s *GuardTestSuite) TestExpiredKeyRunsAgain() {
	guard := NewGuard(s.store, WithTTL(time.Hour))

	calls := 0
	op := func(context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{}`), nil
	}

	_, dup, err := guard.Do(s.ctx, "k1", op)
	s.Require().NoError(err)
	s.False(dup)

	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	_, dup, err = guard.Do(later, "k1", op)
	s.Require().NoError(err)
	s.False(dup)
	s.Equal(2, calls)
}

func (s *GuardTestSuite) TestFailedOperationIsNotStored() {
	boom := errors.New("ledger rejected transaction")
	_, _, err := s.guard.Do(s.ctx, "k1", func(context.Context) (json.RawMessage, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)

	result, dup, err := s.guard.Do(s.ctx, "k1", func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"ok":true}`), nil
	})
	s.Require().NoError(err)
	s.False(dup, "a failed attempt must not shield the key")
	s.JSONEq(`{"ok":true}`, string(result))
}

func (s *GuardTestSuite) TestLostRaceReplaysWinner() {
	store := &racingStore{Store: s.store, winner: json.RawMessage(`{"row":"winner"}`)}
	guard := NewGuard(store)

	result, dup, err := guard.Do(s.ctx, "k1", func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"row":"loser"}`), nil
	})
	s.Require().NoError(err)
	s.True(dup)
	s.JSONEq(`{"row":"winner"}`, string(result))
}

func (s *GuardTestSuite) TestCleanup() {
	seed := func(key string, expiresAt time.Time) {
		s.Require().NoError(s.store.Put(s.ctx, Record{
			Key:       key,
			Result:    json.RawMessage(`{}`),
			ExpiresAt: expiresAt,
		}))
	}
	seed("expired-1", s.now.Add(-time.Minute))
	seed("expired-2", s.now.Add(-time.Hour))
	seed("live", s.now.Add(time.Hour))

	removed, err := s.guard.Cleanup(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, err = s.store.Get(s.ctx, "live")
	s.NoError(err)
	_, err = s.store.Get(s.ctx, "expired-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// racingStore simulates a concurrent writer that stored its result between
// this caller's Get and Put.
type racingStore struct {
	Store
	winner json.RawMessage
	raced  bool
}

func (r *racingStore) Get(ctx context.Context, key string) (*Record, error) {
	if r.raced {
		return &Record{Key: key, Result: r.winner, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	return r.Store.Get(ctx, key)
}

func (r *racingStore) Put(context.Context, Record) error {
	r.raced = true
	return sentinel.ErrConflict
}
