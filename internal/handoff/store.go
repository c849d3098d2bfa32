package handoff

import (
	"context"
	"time"

	id "mintgate/pkg/domain"
)

// Store persists authorization requests.
type Store interface {
	// Create persists a new request. Returns sentinel.ErrConflict when an
	// open request already exists for the same (asset, holder) pair.
	Create(ctx context.Context, req *AuthorizationRequest) error
	// GetByID returns one request, or sentinel.ErrNotFound.
	GetByID(ctx context.Context, requestID id.RequestID) (*AuthorizationRequest, error)
	// GetByTokenHash returns the request bound to a token hash, or
	// sentinel.ErrNotFound.
	GetByTokenHash(ctx context.Context, tokenHash string) (*AuthorizationRequest, error)
	// Consume transitions INVITED -> CONSUMED as a compare-and-set: it fails
	// with sentinel.ErrInvalidState when the request is no longer INVITED,
	// so two racing completions can never both win.
	Consume(ctx context.Context, requestID id.RequestID, txHash string, at time.Time) (*AuthorizationRequest, error)
	// Cancel transitions INVITED -> CANCELLED, same compare-and-set contract
	// as Consume.
	Cancel(ctx context.Context, requestID id.RequestID) (*AuthorizationRequest, error)
	// ExpireStale marks INVITED requests past their TTL as EXPIRED and
	// returns how many rows changed.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
	// ListByAsset returns all requests for an asset, newest first.
	ListByAsset(ctx context.Context, assetID id.AssetID) ([]*AuthorizationRequest, error)
}
