// Package handoff implements the one-time authorization handoff: a
// single-use, hashed token bound to an authorization request with a fixed
// expiry. The raw token lives only in the link handed to the holder; the
// platform persists its hash, so a leaked database snapshot cannot be used
// to forge completions.
package handoff

import (
	"time"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// RequestStatus is the lifecycle state of one authorization request.
type RequestStatus string

const (
	// StatusInvited: the link is live and has not been used.
	StatusInvited RequestStatus = "INVITED"
	// StatusConsumed: the holder completed the handoff. Terminal.
	StatusConsumed RequestStatus = "CONSUMED"
	// StatusExpired: the request passed its TTL unused. Terminal.
	StatusExpired RequestStatus = "EXPIRED"
	// StatusCancelled: the issuer withdrew the invitation. Terminal.
	StatusCancelled RequestStatus = "CANCELLED"
)

// ParseRequestStatus validates and returns a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	switch st {
	case StatusInvited, StatusConsumed, StatusExpired, StatusCancelled:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown request status: %q", s)
}

// AuthorizationRequest is one single-use invitation for a holder to opt in
// to an asset. TokenHash is the sha256 of the raw token; the raw token is
// never stored.
type AuthorizationRequest struct {
	ID        id.RequestID
	TenantID  id.TenantID
	AssetID   id.AssetID
	Holder    id.HolderAddress
	Limit     string
	Status    RequestStatus
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	// ConsumedAt and TxHash are set when the handoff completes.
	ConsumedAt *time.Time
	TxHash     string
}

// Expired reports whether the request is past its TTL at now.
func (r *AuthorizationRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Open reports whether the request can still be consumed at now.
func (r *AuthorizationRequest) Open(now time.Time) bool {
	return r.Status == StatusInvited && !r.Expired(now)
}
