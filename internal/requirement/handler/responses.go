package handler

import (
	"time"

	"mintgate/internal/requirement"
)

// InstanceResponse is the HTTP shape of one requirement instance.
type InstanceResponse struct {
	ID           string     `json:"id"`
	AssetID      string     `json:"asset_id"`
	TemplateID   string     `json:"template_id"`
	IssuanceID   string     `json:"issuance_id,omitempty"`
	Status       string     `json:"status"`
	Rationale    string     `json:"rationale,omitempty"`
	EvidenceRefs []string   `json:"evidence_refs,omitempty"`
	ExceptionReason string  `json:"exception_reason,omitempty"`
	VerifierID   string     `json:"verifier_id,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	Acknowledged bool       `json:"platform_acknowledged"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FromInstance converts a domain instance to its HTTP shape.
func FromInstance(inst *requirement.Instance) *InstanceResponse {
	resp := &InstanceResponse{
		ID:              inst.ID.String(),
		AssetID:         inst.AssetID.String(),
		TemplateID:      inst.TemplateID.String(),
		Status:          string(inst.Status),
		Rationale:       inst.Rationale,
		EvidenceRefs:    inst.EvidenceRefs,
		ExceptionReason: inst.ExceptionReason,
		VerifierID:      inst.VerifierID,
		VerifiedAt:      inst.VerifiedAt,
		Acknowledged:    inst.PlatformAcknowledged,
		CreatedAt:       inst.CreatedAt,
		UpdatedAt:       inst.UpdatedAt,
	}
	if inst.IssuanceID != nil {
		resp.IssuanceID = inst.IssuanceID.String()
	}
	return resp
}

// FromInstances converts a slice of instances, preserving order.
func FromInstances(instances []*requirement.Instance) []*InstanceResponse {
	out := make([]*InstanceResponse, 0, len(instances))
	for _, inst := range instances {
		out = append(out, FromInstance(inst))
	}
	return out
}
