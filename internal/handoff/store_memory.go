package handoff

import (
	"context"
	"sort"
	"sync"
	"time"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// InMemoryStore keeps authorization requests in a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*AuthorizationRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*AuthorizationRequest)}
}

func clone(req *AuthorizationRequest) *AuthorizationRequest {
	cloned := *req
	if req.ConsumedAt != nil {
		at := *req.ConsumedAt
		cloned.ConsumedAt = &at
	}
	return &cloned
}

func (s *InMemoryStore) Create(_ context.Context, req *AuthorizationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.AssetID == req.AssetID && existing.Holder == req.Holder &&
			existing.Status == StatusInvited {
			return sentinel.ErrConflict
		}
	}
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, requestID id.RequestID) (*AuthorizationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(req), nil
}

func (s *InMemoryStore) GetByTokenHash(_ context.Context, tokenHash string) (*AuthorizationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.TokenHash == tokenHash {
			return clone(req), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Consume(_ context.Context, requestID id.RequestID, txHash string, at time.Time) (*AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if req.Status != StatusInvited {
		return nil, sentinel.ErrInvalidState
	}
	req.Status = StatusConsumed
	req.TxHash = txHash
	consumedAt := at
	req.ConsumedAt = &consumedAt
	return clone(req), nil
}

func (s *InMemoryStore) Cancel(_ context.Context, requestID id.RequestID) (*AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if req.Status != StatusInvited {
		return nil, sentinel.ErrInvalidState
	}
	req.Status = StatusCancelled
	return clone(req), nil
}

func (s *InMemoryStore) ExpireStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, req := range s.requests {
		if req.Status == StatusInvited && req.Expired(now) {
			req.Status = StatusExpired
			changed++
		}
	}
	return changed, nil
}

func (s *InMemoryStore) ListByAsset(_ context.Context, assetID id.AssetID) ([]*AuthorizationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AuthorizationRequest
	for _, req := range s.requests {
		if req.AssetID == assetID {
			out = append(out, clone(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}
