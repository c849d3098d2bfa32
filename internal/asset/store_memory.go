package asset

import (
	"context"
	"sort"
	"sync"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[id.AssetID]*Asset
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{assets: make(map[id.AssetID]*Asset)}
}

func (s *InMemoryStore) GetByID(_ context.Context, assetID id.AssetID) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[assetID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := *a
	return &cloned, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Asset
	for _, a := range s.assets {
		if a.Active() {
			cloned := *a
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *InMemoryStore) Create(_ context.Context, a *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[a.ID]; exists {
		return sentinel.ErrConflict
	}
	cloned := *a
	s.assets[a.ID] = &cloned
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, assetID id.AssetID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[assetID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Status = status
	return nil
}
