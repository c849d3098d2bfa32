package requirement

import (
	"context"
	"sort"
	"sync"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// InMemoryStore keeps requirement instances in process memory. Operations are
// individually atomic under the store lock, which also makes the snapshot
// batch all-or-none.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[id.InstanceID]*Instance
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instances: make(map[id.InstanceID]*Instance)}
}

func (s *InMemoryStore) CreateLive(_ context.Context, inst *Instance) error {
	if !inst.IsLive() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.instances {
		if existing.IsLive() && existing.AssetID == inst.AssetID && existing.TemplateID == inst.TemplateID {
			return sentinel.ErrConflict
		}
	}
	s.instances[inst.ID] = clone(inst)
	return nil
}

func (s *InMemoryStore) GetLive(_ context.Context, assetID id.AssetID, templateID id.TemplateID) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.IsLive() && inst.AssetID == assetID && inst.TemplateID == templateID {
			return clone(inst), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByID(_ context.Context, instanceID id.InstanceID) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(inst), nil
}

func (s *InMemoryStore) ListLiveByAsset(_ context.Context, assetID id.AssetID) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instance
	for _, inst := range s.instances {
		if inst.IsLive() && inst.AssetID == assetID {
			out = append(out, clone(inst))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) UpdateLive(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.instances[inst.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Snapshots are write-once.
	if !existing.IsLive() || !inst.IsLive() {
		return sentinel.ErrInvalidState
	}
	s.instances[inst.ID] = clone(inst)
	return nil
}

func (s *InMemoryStore) CreateSnapshotBatch(_ context.Context, snapshots []*Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		if snap.IsLive() {
			return sentinel.ErrInvalidState
		}
		if _, exists := s.instances[snap.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, snap := range snapshots {
		s.instances[snap.ID] = clone(snap)
	}
	return nil
}

func (s *InMemoryStore) ListByIssuance(_ context.Context, issuanceID id.IssuanceID) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instance
	for _, inst := range s.instances {
		if inst.IssuanceID != nil && *inst.IssuanceID == issuanceID {
			out = append(out, clone(inst))
		}
	}
	sortByCreation(out)
	return out, nil
}

func clone(inst *Instance) *Instance {
	c := *inst
	c.EvidenceRefs = append([]string(nil), inst.EvidenceRefs...)
	if inst.IssuanceID != nil {
		issuance := *inst.IssuanceID
		c.IssuanceID = &issuance
	}
	return &c
}

func sortByCreation(instances []*Instance) {
	sort.Slice(instances, func(i, j int) bool {
		if instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].ID.String() < instances[j].ID.String()
		}
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})
}
