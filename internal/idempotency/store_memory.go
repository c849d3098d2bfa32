package idempotency

import (
	"context"
	"sync"
	"time"

	"mintgate/pkg/platform/sentinel"
)

// InMemoryStore keeps idempotency records in a map. Expired records are kept
// until DeleteExpired runs; Get filters them out.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := rec
	return &cloned, nil
}

func (s *InMemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.Key]; ok && !existing.Expired(time.Now()) {
		return sentinel.ErrConflict
	}
	s.records[rec.Key] = rec
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
