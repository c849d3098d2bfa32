package handler

import (
	"mintgate/internal/policy"
	"mintgate/internal/requirement"
)

// EvaluateResponse is the HTTP response for policy evaluations.
type EvaluateResponse struct {
	Matched          []MatchedTemplate        `json:"matched"`
	EnforcementPlan  map[string]map[string]bool `json:"enforcement_plan"`
	Rationale        []policy.RationaleEntry  `json:"rationale"`
	SkippedTemplates []policy.SkippedTemplate `json:"skipped_templates"`
	// CreatedInstances is only populated by the persisting evaluate.
	CreatedInstances []CreatedInstance `json:"created_instances,omitempty"`
}

// MatchedTemplate summarizes one matched template.
type MatchedTemplate struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	RegimeID   string `json:"regime_id"`
	Version    int    `json:"version"`
}

// CreatedInstance summarizes one requirement instance materialized by the
// persisting evaluate.
type CreatedInstance struct {
	InstanceID string `json:"instance_id"`
	TemplateID string `json:"template_id"`
	Status     string `json:"status"`
}

// FromEvaluation converts a kernel evaluation to the HTTP response.
func FromEvaluation(eval *policy.Evaluation, created []*requirement.Instance) *EvaluateResponse {
	resp := &EvaluateResponse{
		Matched:          make([]MatchedTemplate, 0, len(eval.Matched)),
		EnforcementPlan:  make(map[string]map[string]bool, len(eval.EnforcementPlan)),
		Rationale:        eval.Rationale,
		SkippedTemplates: eval.SkippedTemplates,
	}
	for _, tpl := range eval.Matched {
		resp.Matched = append(resp.Matched, MatchedTemplate{
			TemplateID: tpl.ID.String(),
			Name:       tpl.Name,
			RegimeID:   tpl.RegimeID.String(),
			Version:    tpl.Version,
		})
	}
	for kind, flags := range eval.EnforcementPlan {
		resp.EnforcementPlan[kind.String()] = flags
	}
	for _, inst := range created {
		resp.CreatedInstances = append(resp.CreatedInstances, CreatedInstance{
			InstanceID: inst.ID.String(),
			TemplateID: inst.TemplateID.String(),
			Status:     string(inst.Status),
		})
	}
	return resp
}
