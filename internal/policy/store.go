package policy

import (
	"context"
	"time"

	id "mintgate/pkg/domain"
)

// TemplateStore provides read-mostly access to regimes and requirement
// templates. Templates are versioned reference data: created by regulatory
// onboarding, never deleted.
type TemplateStore interface {
	// ListEffectiveTemplates returns every template whose validity window
	// contains at, across all regimes, in a stable order.
	ListEffectiveTemplates(ctx context.Context, at time.Time) ([]*RequirementTemplate, error)
	GetTemplate(ctx context.Context, templateID id.TemplateID) (*RequirementTemplate, error)
	GetRegime(ctx context.Context, regimeID id.RegimeID) (*Regime, error)

	// CreateRegime and CreateTemplate serve regulatory onboarding.
	CreateRegime(ctx context.Context, regime *Regime) error
	CreateTemplate(ctx context.Context, template *RequirementTemplate) error
}
