// Package authorization keeps the append-only history of holder opt-in state
// per asset, and the reconciliation engine that derives transitions from
// ledger reads.
package authorization

import (
	"time"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Status is the holder opt-in state recorded by one authorization row.
type Status string

const (
	// StatusExternal: an opt-in line exists on the ledger that the platform
	// did not create and the issuer has not authorized.
	StatusExternal Status = "EXTERNAL"
	// StatusIssuerAuthorized: the issuer has authorized the holder's line.
	StatusIssuerAuthorized Status = "ISSUER_AUTHORIZED"
	// StatusHolderRequested: the holder completed a one-time authorization
	// handoff and signed the opt-in transaction.
	StatusHolderRequested Status = "HOLDER_REQUESTED"
	// StatusLimitUpdated: the holder-side limit changed.
	StatusLimitUpdated Status = "LIMIT_UPDATED"
	// StatusTrustlineClosed: the line disappeared from the ledger. Terminal
	// until a new opt-in reappears and restarts the chain.
	StatusTrustlineClosed Status = "TRUSTLINE_CLOSED"
)

// ParseStatus validates and returns a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusExternal, StatusIssuerAuthorized, StatusHolderRequested,
		StatusLimitUpdated, StatusTrustlineClosed:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown authorization status: %q", s)
}

func (s Status) String() string { return string(s) }

// InitiatedBy names which party triggered the transition.
type InitiatedBy string

const (
	InitiatedByHolder InitiatedBy = "HOLDER"
	InitiatedByIssuer InitiatedBy = "ISSUER"
	InitiatedBySystem InitiatedBy = "SYSTEM"
)

// ParseInitiatedBy validates and returns an InitiatedBy.
func ParseInitiatedBy(s string) (InitiatedBy, error) {
	b := InitiatedBy(s)
	switch b {
	case InitiatedByHolder, InitiatedByIssuer, InitiatedBySystem:
		return b, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown initiator: %q", s)
}

// Authorization is one append-only event row. The current state for a
// (asset, holder) pair is its most recent row; history is never mutated.
type Authorization struct {
	ID       id.AuthorizationID
	TenantID id.TenantID
	AssetID  id.AssetID
	Ledger   id.LedgerKind
	Currency string
	Holder   id.HolderAddress
	// Limit is the holder-side limit recorded with this transition, as the
	// ledger's decimal string.
	Limit       string
	Status      Status
	InitiatedBy InitiatedBy
	TxHash      string
	// External marks rows derived from ledger observation rather than a
	// platform-initiated action.
	External       bool
	ExternalSource string
	CreatedAt      time.Time
	// Seq is a store-assigned monotonic sequence that breaks createdAt ties
	// within one reconciliation pass. Zero until persisted.
	Seq int64
}

// Closed reports whether this row records a closed line.
func (a *Authorization) Closed() bool { return a.Status == StatusTrustlineClosed }
