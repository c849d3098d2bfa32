package authorization

import (
	"context"

	id "mintgate/pkg/domain"
)

// Store persists authorization rows. Append-only: there are no update or
// delete operations.
type Store interface {
	// Append persists one row and assigns its Seq.
	Append(ctx context.Context, auth *Authorization) error
	// LatestByAsset returns the most recent row per holder for one asset.
	LatestByAsset(ctx context.Context, assetID id.AssetID) (map[id.HolderAddress]*Authorization, error)
	// LatestForHolder returns the most recent row for one (asset, holder)
	// pair, or sentinel.ErrNotFound.
	LatestForHolder(ctx context.Context, assetID id.AssetID, holder id.HolderAddress) (*Authorization, error)
	// ListByHolder returns the full history for one (asset, holder) pair,
	// oldest first.
	ListByHolder(ctx context.Context, assetID id.AssetID, holder id.HolderAddress) ([]*Authorization, error)
}
