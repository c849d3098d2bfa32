// Package asset provides the read-mostly asset/product/organization context
// the core components consume. Full entity CRUD lives elsewhere; this package
// carries only what gating, reconciliation, and the manifest builder need.
package asset

import (
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Status is the asset lifecycle state.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusActive  Status = "ACTIVE"
	StatusRetired Status = "RETIRED"
)

// ParseStatus validates and returns a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusDraft, StatusActive, StatusRetired:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown asset status: %q", s)
}

// Asset is one regulated token.
type Asset struct {
	ID       id.AssetID
	TenantID id.TenantID
	// ProductID and OrganizationID are foreign identifiers owned by the
	// entity CRUD collaborator; the core never writes them.
	ProductID      string
	OrganizationID string

	Name   string
	Ledger id.LedgerKind
	// Currency is the ledger-level currency/token code.
	Currency string
	// IssuingAddress is the issuer account whose opt-in lines the
	// reconciliation engine reads.
	IssuingAddress string
	Status         Status
}

// Active reports whether the asset may be issued and reconciled.
func (a *Asset) Active() bool { return a.Status == StatusActive }
