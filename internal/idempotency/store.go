// Package idempotency provides an at-most-once wrapper for operations that
// must not run twice for the same logical request. Keys are deterministic
// hashes of (operation name, normalized payload); stored results are returned
// to duplicate callers until the key expires.
package idempotency

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one stored operation result.
type Record struct {
	Key       string
	Result    json.RawMessage
	ExpiresAt time.Time
}

// Expired reports whether the record is past its TTL.
func (r *Record) Expired(now time.Time) bool { return !now.Before(r.ExpiresAt) }

// Store persists idempotency records.
type Store interface {
	// Get returns the record for key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)
	// Put stores a record. Returns sentinel.ErrConflict when the key already
	// exists; callers re-read and treat the stored result as the winner.
	Put(ctx context.Context, rec Record) error
	// DeleteExpired removes records past their TTL and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
