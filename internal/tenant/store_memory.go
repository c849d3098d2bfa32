package tenant

import (
	"context"
	"sync"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store used in tests and single-node setups.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.TenantID]*Tenant
	byKeyID map[string]id.TenantID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[id.TenantID]*Tenant),
		byKeyID: make(map[string]id.TenantID),
	}
}

func (s *MemoryStore) Create(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKeyID[t.APIKeyID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[t.ID]; ok {
		return sentinel.ErrConflict
	}
	s.byID[t.ID] = clone(t)
	s.byKeyID[t.APIKeyID] = t.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, tenantID id.TenantID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) GetByAPIKeyID(_ context.Context, apiKeyID string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.byKeyID[apiKeyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[tenantID]), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, tenantID id.TenantID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.Status = status
	return nil
}

func clone(t *Tenant) *Tenant {
	cp := *t
	cp.APIKeyHash = append([]byte(nil), t.APIKeyHash...)
	return &cp
}
