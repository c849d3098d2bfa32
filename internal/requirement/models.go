// Package requirement holds per-asset requirement instances: the evaluated
// outcome of one template against one asset's facts, and their frozen
// per-issuance snapshots.
package requirement

import (
	"time"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Status is the lifecycle state of a requirement instance.
// Invariant: the value must be one of the supported statuses.
type Status string

const (
	StatusNA        Status = "NA"
	StatusRequired  Status = "REQUIRED"
	StatusSatisfied Status = "SATISFIED"
	StatusException Status = "EXCEPTION"
)

// ParseStatus validates and returns a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNA, StatusRequired, StatusSatisfied, StatusException:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown requirement status: %q", s)
}

func (s Status) String() string { return string(s) }

// Settled reports whether the instance no longer blocks issuance.
func (s Status) Settled() bool {
	return s == StatusSatisfied || s == StatusException || s == StatusNA
}

// Instance is one evaluated requirement. IssuanceID nil means the instance is
// live and mutable through verification actions; non-nil means it is a frozen
// issuance snapshot and write-once.
type Instance struct {
	ID         id.InstanceID
	TenantID   id.TenantID
	AssetID    id.AssetID
	TemplateID id.TemplateID
	IssuanceID *id.IssuanceID

	Status       Status
	Rationale    string
	EvidenceRefs []string

	// ExceptionReason is required when Status is EXCEPTION.
	ExceptionReason string

	VerifierID string
	VerifiedAt *time.Time

	PlatformAcknowledged bool
	PlatformAckBy        string
	PlatformAckAt        *time.Time
	PlatformAckReason    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLive reports whether the instance is the mutable per-asset record.
func (i *Instance) IsLive() bool { return i.IssuanceID == nil }

// Blocking reports whether this live instance blocks issuance.
func (i *Instance) Blocking() bool {
	return i.Status == StatusRequired
}

// Snapshot returns a frozen copy of the instance bound to issuanceID with a
// fresh identity and timestamp. The source row is not modified.
func (i *Instance) Snapshot(issuanceID id.IssuanceID, now time.Time) *Instance {
	frozen := *i
	frozen.ID = id.NewInstanceID()
	frozen.IssuanceID = &issuanceID
	frozen.EvidenceRefs = append([]string(nil), i.EvidenceRefs...)
	frozen.CreatedAt = now
	frozen.UpdatedAt = now
	return &frozen
}

// BlockedRequirement names one instance that blocks issuance, surfaced to
// callers so a rejected issuance is always attributable.
type BlockedRequirement struct {
	InstanceID id.InstanceID `json:"instanceId"`
	TemplateID id.TemplateID `json:"templateId"`
	Status     Status        `json:"status"`
	Rationale  string        `json:"rationale,omitempty"`
}

// Validation is the result of the issuance gate check.
type Validation struct {
	Valid               bool                 `json:"valid"`
	BlockedRequirements []BlockedRequirement `json:"blockedRequirements"`
}
