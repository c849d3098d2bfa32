package policy

import (
	"context"
	"sort"
	"sync"
	"time"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// InMemoryTemplateStore keeps regimes and templates in process memory.
type InMemoryTemplateStore struct {
	mu        sync.RWMutex
	regimes   map[id.RegimeID]*Regime
	templates map[id.TemplateID]*RequirementTemplate
}

func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{
		regimes:   make(map[id.RegimeID]*Regime),
		templates: make(map[id.TemplateID]*RequirementTemplate),
	}
}

func (s *InMemoryTemplateStore) ListEffectiveTemplates(_ context.Context, at time.Time) ([]*RequirementTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RequirementTemplate
	for _, tpl := range s.templates {
		if tpl.EffectiveAt(at) {
			out = append(out, cloneTemplate(tpl))
		}
	}
	// Stable order keeps rationale deterministic across calls.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemoryTemplateStore) GetTemplate(_ context.Context, templateID id.TemplateID) (*RequirementTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[templateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTemplate(tpl), nil
}

func (s *InMemoryTemplateStore) GetRegime(_ context.Context, regimeID id.RegimeID) (*Regime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regime, ok := s.regimes[regimeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := *regime
	return &cloned, nil
}

func (s *InMemoryTemplateStore) CreateRegime(_ context.Context, regime *Regime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.regimes[regime.ID]; exists {
		return sentinel.ErrConflict
	}
	cloned := *regime
	s.regimes[regime.ID] = &cloned
	return nil
}

func (s *InMemoryTemplateStore) CreateTemplate(_ context.Context, template *RequirementTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.templates[template.ID]; exists {
		return sentinel.ErrConflict
	}
	s.templates[template.ID] = cloneTemplate(template)
	return nil
}

func cloneTemplate(tpl *RequirementTemplate) *RequirementTemplate {
	c := *tpl
	c.DataPoints = append([]string(nil), tpl.DataPoints...)
	if tpl.EnforcementHints != nil {
		c.EnforcementHints = make(EnforcementHints, len(tpl.EnforcementHints))
		for kind, flags := range tpl.EnforcementHints {
			dst := make(map[string]bool, len(flags))
			for k, v := range flags {
				dst[k] = v
			}
			c.EnforcementHints[kind] = dst
		}
	}
	if tpl.EffectiveTo != nil {
		to := *tpl.EffectiveTo
		c.EffectiveTo = &to
	}
	return &c
}
