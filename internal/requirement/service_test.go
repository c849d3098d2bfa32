package requirement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Requirement service
// ---------------------------------------------------------------------------

type ServiceTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	store   *InMemoryStore
	service *Service

	tenantID id.TenantID
	assetID  id.AssetID
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.now = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemoryStore()
	s.service = NewService(s.store)
	s.tenantID = id.NewTenantID()
	s.assetID = id.NewAssetID()
}

// seedLive creates a live instance with the given status and returns it.
func (s *ServiceTestSuite) seedLive(status Status, createdAt time.Time) *Instance {
	inst := &Instance{
		ID:         id.NewInstanceID(),
		TenantID:   s.tenantID,
		AssetID:    s.assetID,
		TemplateID: id.NewTemplateID(),
		Status:     status,
		Rationale:  "matched on tokenCategory",
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	s.Require().NoError(s.store.CreateLive(s.ctx, inst))
	return inst
}

func (s *ServiceTestSuite) TestVerificationActions() {
	s.Run("mark satisfied records verifier and evidence", func() {
		inst := s.seedLive(StatusRequired, s.now.Add(-time.Hour))

		updated, err := s.service.MarkSatisfied(s.ctx, inst.ID, "verifier-7", []string{"doc://kyc-report"})
		s.Require().NoError(err)
		s.Equal(StatusSatisfied, updated.Status)
		s.Equal("verifier-7", updated.VerifierID)
		s.Require().NotNil(updated.VerifiedAt)
		s.Equal(s.now, *updated.VerifiedAt)
		s.Equal([]string{"doc://kyc-report"}, updated.EvidenceRefs)
		s.Equal(s.now, updated.UpdatedAt)
	})

	s.Run("exception requires a reason", func() {
		inst := s.seedLive(StatusRequired, s.now.Add(-time.Hour))

		_, err := s.service.RecordException(s.ctx, inst.ID, "", "verifier-7")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		updated, err := s.service.RecordException(s.ctx, inst.ID, "covered by transfer agent", "verifier-7")
		s.Require().NoError(err)
		s.Equal(StatusException, updated.Status)
		s.Equal("covered by transfer agent", updated.ExceptionReason)
	})

	s.Run("acknowledge sets the platform ack fields", func() {
		inst := s.seedLive(StatusRequired, s.now.Add(-time.Hour))

		updated, err := s.service.Acknowledge(s.ctx, inst.ID, "compliance-ops", "reviewed in onboarding call")
		s.Require().NoError(err)
		s.True(updated.PlatformAcknowledged)
		s.Equal("compliance-ops", updated.PlatformAckBy)
		s.Equal("reviewed in onboarding call", updated.PlatformAckReason)
		s.Require().NotNil(updated.PlatformAckAt)
		s.Equal(StatusRequired, updated.Status, "acknowledgement does not settle the requirement")
	})

	s.Run("unknown instance is not_found", func() {
		_, err := s.service.MarkSatisfied(s.ctx, id.NewInstanceID(), "verifier-7", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceTestSuite) TestIssuanceGate() {
	s.Run("valid when no live requirements exist", func() {
		validation, err := s.service.ValidateIssuanceRequirements(s.ctx, s.assetID)
		s.Require().NoError(err)
		s.True(validation.Valid)
		s.Empty(validation.BlockedRequirements)
	})

	s.Run("blocked while any requirement stays required", func() {
		blocking := s.seedLive(StatusRequired, s.now.Add(-2*time.Hour))
		s.seedLive(StatusSatisfied, s.now.Add(-time.Hour))

		validation, err := s.service.ValidateIssuanceRequirements(s.ctx, s.assetID)
		s.Require().NoError(err)
		s.False(validation.Valid)
		s.Require().Len(validation.BlockedRequirements, 1)
		s.Equal(blocking.ID, validation.BlockedRequirements[0].InstanceID)
		s.Equal(StatusRequired, validation.BlockedRequirements[0].Status)
	})

	s.Run("exception and na do not block", func() {
		_, err := s.service.RecordException(s.ctx,
			s.mustOnlyBlocked().InstanceID, "board-approved carve-out", "verifier-7")
		s.Require().NoError(err)
		s.seedLive(StatusNA, s.now)

		validation, err := s.service.ValidateIssuanceRequirements(s.ctx, s.assetID)
		s.Require().NoError(err)
		s.True(validation.Valid)
	})
}

func (s *ServiceTestSuite) mustOnlyBlocked() BlockedRequirement {
	validation, err := s.service.ValidateIssuanceRequirements(s.ctx, s.assetID)
	s.Require().NoError(err)
	s.Require().Len(validation.BlockedRequirements, 1)
	return validation.BlockedRequirements[0]
}

func (s *ServiceTestSuite) TestSnapshots() {
	issuanceID := id.NewIssuanceID()

	s.Run("snapshot freezes the live rows", func() {
		s.seedLive(StatusSatisfied, s.now.Add(-2*time.Hour))
		s.seedLive(StatusException, s.now.Add(-time.Hour))

		frozen, err := s.service.CreateIssuanceSnapshot(s.ctx, s.assetID, issuanceID)
		s.Require().NoError(err)
		s.Require().Len(frozen, 2)
		for _, snap := range frozen {
			s.Require().NotNil(snap.IssuanceID)
			s.Equal(issuanceID, *snap.IssuanceID)
			s.False(snap.IsLive())
		}

		// The live rows are untouched.
		live, err := s.service.ListLive(s.ctx, s.assetID)
		s.Require().NoError(err)
		s.Len(live, 2)
		for _, inst := range live {
			s.True(inst.IsLive())
		}
	})

	s.Run("snapshot rows are immutable", func() {
		rows, err := s.service.GetIssuanceSnapshot(s.ctx, issuanceID)
		s.Require().NoError(err)
		s.Require().NotEmpty(rows)

		_, err = s.service.MarkSatisfied(s.ctx, rows[0].ID, "verifier-7", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("snapshot reads come back oldest first", func() {
		rows, err := s.service.GetIssuanceSnapshot(s.ctx, issuanceID)
		s.Require().NoError(err)
		for i := 1; i < len(rows); i++ {
			s.False(rows[i].CreatedAt.Before(rows[i-1].CreatedAt))
		}
	})

	s.Run("zero live rows is a logged no-op", func() {
		frozen, err := s.service.CreateIssuanceSnapshot(s.ctx, id.NewAssetID(), id.NewIssuanceID())
		s.Require().NoError(err)
		s.Nil(frozen)
	})

	s.Run("partial snapshot failure leaves nothing behind", func() {
		failing := &failingSnapshotStore{Store: s.store}
		svc := NewService(failing)
		otherIssuance := id.NewIssuanceID()

		_, err := svc.CreateIssuanceSnapshot(s.ctx, s.assetID, otherIssuance)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSnapshotFailed))

		rows, err := s.service.GetIssuanceSnapshot(s.ctx, otherIssuance)
		s.Require().NoError(err)
		s.Empty(rows)
	})
}

// failingSnapshotStore fails every snapshot batch.
type failingSnapshotStore struct {
	Store
}

func (f *failingSnapshotStore) CreateSnapshotBatch(context.Context, []*Instance) error {
	return sentinel.ErrUnavailable
}
