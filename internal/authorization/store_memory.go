package authorization

import (
	"context"
	"sync"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// InMemoryStore keeps authorization rows in append order.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows []*Authorization
	seq  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, auth *Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	auth.Seq = s.seq
	cloned := *auth
	s.rows = append(s.rows, &cloned)
	return nil
}

func (s *InMemoryStore) LatestByAsset(_ context.Context, assetID id.AssetID) (map[id.HolderAddress]*Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[id.HolderAddress]*Authorization)
	for _, row := range s.rows {
		if row.AssetID != assetID {
			continue
		}
		cloned := *row
		latest[row.Holder] = &cloned
	}
	return latest, nil
}

func (s *InMemoryStore) LatestForHolder(_ context.Context, assetID id.AssetID, holder id.HolderAddress) (*Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *Authorization
	for _, row := range s.rows {
		if row.AssetID == assetID && row.Holder == holder {
			found = row
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	cloned := *found
	return &cloned, nil
}

func (s *InMemoryStore) ListByHolder(_ context.Context, assetID id.AssetID, holder id.HolderAddress) ([]*Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Authorization
	for _, row := range s.rows {
		if row.AssetID == assetID && row.Holder == holder {
			cloned := *row
			out = append(out, &cloned)
		}
	}
	return out, nil
}
