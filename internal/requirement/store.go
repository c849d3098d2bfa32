package requirement

import (
	"context"

	id "mintgate/pkg/domain"
)

// Store persists requirement instances.
//
// Invariants implementations must uphold:
//   - at most one live instance per (assetID, templateID); CreateLive returns
//     sentinel.ErrConflict when one exists
//   - snapshot rows are write-once; UpdateLive refuses rows with a non-nil
//     IssuanceID
//   - CreateSnapshotBatch participates in a caller transaction when one is in
//     context, so the batch lands all-or-none
type Store interface {
	CreateLive(ctx context.Context, inst *Instance) error
	GetLive(ctx context.Context, assetID id.AssetID, templateID id.TemplateID) (*Instance, error)
	GetByID(ctx context.Context, instanceID id.InstanceID) (*Instance, error)
	ListLiveByAsset(ctx context.Context, assetID id.AssetID) ([]*Instance, error)
	UpdateLive(ctx context.Context, inst *Instance) error
	CreateSnapshotBatch(ctx context.Context, snapshots []*Instance) error
	ListByIssuance(ctx context.Context, issuanceID id.IssuanceID) ([]*Instance, error)
}
