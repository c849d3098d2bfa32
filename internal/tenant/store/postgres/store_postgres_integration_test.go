//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/tenant"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/testutil/containers"
)

// ---------------------------------------------------------------------------
// Tenant postgres store (integration)
// ---------------------------------------------------------------------------

type TenantStoreIntegrationSuite struct {
	suite.Suite

	ctx   context.Context
	pg    *containers.PostgresContainer
	store *Store
}

func TestTenantStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pg := containers.NewPostgresContainer(t)
	pg.MustExec(t, `
		CREATE TABLE tenants (
			id           UUID PRIMARY KEY,
			name         TEXT NOT NULL,
			api_key_id   TEXT NOT NULL UNIQUE,
			api_key_hash BYTEA NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		)`)
	suite.Run(t, &TenantStoreIntegrationSuite{pg: pg})
}

func (s *TenantStoreIntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.pg.MustExec(s.T(), `TRUNCATE tenants`)
	s.store = New(s.pg.DB)
}

func (s *TenantStoreIntegrationSuite) seed() *tenant.Tenant {
	t := &tenant.Tenant{
		ID:         id.NewTenantID(),
		Name:       "Alpine Issuance AG",
		APIKeyID:   "mg_" + id.NewTenantID().String()[:8],
		APIKeyHash: []byte("$2a$10$fakehashfortesting"),
		Status:     tenant.StatusActive,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Create(s.ctx, t))
	return t
}

func (s *TenantStoreIntegrationSuite) TestRoundTrip() {
	created := s.seed()

	byID, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.Name, byID.Name)
	s.Equal(created.APIKeyHash, byID.APIKeyHash)

	byKey, err := s.store.GetByAPIKeyID(s.ctx, created.APIKeyID)
	s.Require().NoError(err)
	s.Equal(created.ID, byKey.ID)
}

func (s *TenantStoreIntegrationSuite) TestDuplicateAPIKeyIDConflicts() {
	created := s.seed()

	dup := *created
	dup.ID = id.NewTenantID()
	s.ErrorIs(s.store.Create(s.ctx, &dup), sentinel.ErrConflict)
}

func (s *TenantStoreIntegrationSuite) TestUpdateStatus() {
	created := s.seed()

	s.Require().NoError(s.store.UpdateStatus(s.ctx, created.ID, tenant.StatusSuspended))
	got, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, got.Status)

	s.ErrorIs(s.store.UpdateStatus(s.ctx, id.NewTenantID(), tenant.StatusActive), sentinel.ErrNotFound)
}

func (s *TenantStoreIntegrationSuite) TestUnknownTenantIsNotFound() {
	_, err := s.store.GetByID(s.ctx, id.NewTenantID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.GetByAPIKeyID(s.ctx, "mg_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
