package tenant

import (
	"context"

	id "mintgate/pkg/domain"
)

// Store is the persistence contract for tenants.
type Store interface {
	// Create persists a new tenant. Returns sentinel.ErrConflict when the
	// API key ID or tenant ID is already taken.
	Create(ctx context.Context, t *Tenant) error

	// GetByID returns the tenant or sentinel.ErrNotFound.
	GetByID(ctx context.Context, tenantID id.TenantID) (*Tenant, error)

	// GetByAPIKeyID returns the tenant owning the key or sentinel.ErrNotFound.
	GetByAPIKeyID(ctx context.Context, apiKeyID string) (*Tenant, error)

	// UpdateStatus changes the lifecycle state.
	UpdateStatus(ctx context.Context, tenantID id.TenantID, status Status) error
}
