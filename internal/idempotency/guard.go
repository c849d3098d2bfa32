package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gowebpki/jcs"

	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// DefaultTTL is how long a stored result shields its key from re-execution.
const DefaultTTL = 24 * time.Hour

// Operation produces a result exactly once for a given key. The result must
// be JSON so it can be replayed to duplicate callers.
type Operation func(ctx context.Context) (json.RawMessage, error)

// Guard wraps operations with at-most-once semantics.
type Guard struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// GuardOption configures the Guard.
type GuardOption func(*Guard)

// WithTTL overrides the result retention window.
func WithTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) { g.ttl = ttl }
}

// WithLogger sets the guard logger.
func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard builds a Guard on top of a record store.
func NewGuard(store Store, opts ...GuardOption) *Guard {
	g := &Guard{store: store, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Key derives the idempotency key for one logical request: a hex sha256 of
// the operation name and the canonicalized payload. Logically identical
// payloads collide regardless of field order; distinct ones never do.
func Key(operation string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to encode idempotency payload")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to canonicalize idempotency payload")
	}
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Do runs op at most once for key. A stored, unexpired result is returned
// with duplicate=true and op is not invoked. When two callers race, the
// store's first-writer-wins contract decides whose result is kept; the loser
// discards its own result and replays the winner's.
func (g *Guard) Do(ctx context.Context, key string, op Operation) (json.RawMessage, bool, error) {
	now := requestcontext.Now(ctx)

	if rec, err := g.store.Get(ctx, key); err == nil {
		if !rec.Expired(now) {
			return rec.Result, true, nil
		}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up idempotency key")
	}

	result, err := op(ctx)
	if err != nil {
		return nil, false, err
	}

	err = g.store.Put(ctx, Record{Key: key, Result: result, ExpiresAt: now.Add(g.ttl)})
	if errors.Is(err, sentinel.ErrConflict) {
		rec, getErr := g.store.Get(ctx, key)
		if getErr != nil {
			return nil, false, dErrors.Wrap(getErr, dErrors.CodeInternal, "failed to read winning idempotency record")
		}
		g.logger.InfoContext(ctx, "idempotency race lost, replaying stored result", "key", key)
		return rec.Result, true, nil
	}
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store idempotency record")
	}
	return result, false, nil
}

// Cleanup removes expired records. Safe to run repeatedly; backends with
// native expiry report zero removals.
func (g *Guard) Cleanup(ctx context.Context) (int, error) {
	removed, err := g.store.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expired idempotency records")
	}
	if removed > 0 {
		g.logger.InfoContext(ctx, "expired idempotency records removed", "count", removed)
	}
	return removed, nil
}
