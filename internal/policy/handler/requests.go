package handler

import (
	"time"

	"mintgate/internal/policy"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// EvaluateRequest is the HTTP request body for POST /policy/evaluate and
// POST /assets/{assetID}/requirements/evaluate.
type EvaluateRequest struct {
	Facts map[string]any `json:"facts"`
}

// Validate checks the request.
func (r *EvaluateRequest) Validate() error {
	if len(r.Facts) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "facts record is required")
	}
	return nil
}

// CreateRegimeRequest is the HTTP request body for POST /policy/regimes.
type CreateRegimeRequest struct {
	Name          string     `json:"name"`
	Version       string     `json:"version"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// Validate checks the request.
func (r *CreateRegimeRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Version == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "version is required")
	}
	if r.EffectiveFrom.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "effective_from is required")
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return dErrors.New(dErrors.CodeInvalidInput, "effective_to must be after effective_from")
	}
	return nil
}

// CreateTemplateRequest is the HTTP request body for POST /policy/templates.
type CreateTemplateRequest struct {
	RegimeID          string                     `json:"regime_id"`
	Name              string                     `json:"name"`
	Description       string                     `json:"description"`
	ApplicabilityExpr string                     `json:"applicability_expr"`
	DataPoints        []string                   `json:"data_points"`
	EnforcementHints  map[string]map[string]bool `json:"enforcement_hints"`
	Version           int                        `json:"version"`
	EffectiveFrom     time.Time                  `json:"effective_from"`
	EffectiveTo       *time.Time                 `json:"effective_to,omitempty"`

	parsedRegimeID id.RegimeID
	parsedHints    policy.EnforcementHints
}

// Validate validates and parses the request.
func (r *CreateTemplateRequest) Validate() error {
	regimeID, err := id.ParseRegimeID(r.RegimeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid regime_id")
	}
	r.parsedRegimeID = regimeID

	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.ApplicabilityExpr == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "applicability_expr is required")
	}
	if r.Version < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "version must be at least 1")
	}
	if r.EffectiveFrom.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "effective_from is required")
	}

	r.parsedHints = make(policy.EnforcementHints, len(r.EnforcementHints))
	for kind, flags := range r.EnforcementHints {
		parsed, err := id.ParseLedgerKind(kind)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid enforcement hint ledger")
		}
		r.parsedHints[parsed] = flags
	}
	return nil
}

// Template builds the domain template.
func (r *CreateTemplateRequest) Template() *policy.RequirementTemplate {
	return &policy.RequirementTemplate{
		ID:                id.NewTemplateID(),
		RegimeID:          r.parsedRegimeID,
		Name:              r.Name,
		Description:       r.Description,
		ApplicabilityExpr: r.ApplicabilityExpr,
		DataPoints:        r.DataPoints,
		EnforcementHints:  r.parsedHints,
		Version:           r.Version,
		EffectiveFrom:     r.EffectiveFrom,
		EffectiveTo:       r.EffectiveTo,
	}
}
