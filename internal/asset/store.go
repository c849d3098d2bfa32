package asset

import (
	"context"

	id "mintgate/pkg/domain"
)

// Store provides asset context reads plus the minimal writes onboarding
// needs.
type Store interface {
	GetByID(ctx context.Context, assetID id.AssetID) (*Asset, error)
	ListActive(ctx context.Context) ([]*Asset, error)
	Create(ctx context.Context, a *Asset) error
	UpdateStatus(ctx context.Context, assetID id.AssetID, status Status) error
}
