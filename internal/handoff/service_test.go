package handoff

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mintgate/internal/asset"
	"mintgate/internal/authorization"
	"mintgate/internal/idempotency"
	"mintgate/internal/ledger"
	"mintgate/internal/ledger/mock"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Handoff service
// ---------------------------------------------------------------------------

type ServiceTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	ctrl    *gomock.Controller
	assets  *asset.InMemoryStore
	store   *InMemoryStore
	auths   *authorization.InMemoryStore
	adapter *mock.MockAdapter
	svc     *Service

	asset  *asset.Asset
	holder id.HolderAddress
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctrl = gomock.NewController(s.T())
	s.assets = asset.NewInMemoryStore()
	s.store = NewInMemoryStore()
	s.auths = authorization.NewInMemoryStore()
	s.adapter = mock.NewMockAdapter(s.ctrl)

	adapters := map[id.LedgerKind]ledger.Adapter{id.LedgerKindXRPL: s.adapter}
	s.svc = NewService(s.store, s.assets, s.auths,
		NewLedgerVerifier(adapters),
		idempotency.NewGuard(idempotency.NewInMemoryStore()),
		WithRequestTTL(24*time.Hour),
		WithExternalOrigin("https://issuer.example.com"),
	)

	tenantID, err := id.ParseTenantID("a1a1a1a1-0000-0000-0000-000000000001")
	s.Require().NoError(err)
	s.asset = &asset.Asset{
		ID:             id.NewAssetID(),
		TenantID:       tenantID,
		Name:           "Alpine Reserve Token",
		Ledger:         id.LedgerKindXRPL,
		Currency:       "ART",
		IssuingAddress: "rIssuer1",
		Status:         asset.StatusActive,
	}
	s.Require().NoError(s.assets.Create(s.ctx, s.asset))
	s.holder = id.HolderAddress("rHolder1")
}

func (s *ServiceTestSuite) invite() (*AuthorizationRequest, string) {
	req, link, err := s.svc.CreateRequest(s.ctx, s.asset.ID, s.holder, "1000")
	s.Require().NoError(err)
	return req, strings.TrimPrefix(link, "https://issuer.example.com/authorize/")
}

func (s *ServiceTestSuite) trustSet(txHash string) {
	s.adapter.EXPECT().GetTransaction(gomock.Any(), txHash).Return(map[string]any{
		"TransactionType": "TrustSet",
		"Account":         s.holder.String(),
		"LimitAmount": map[string]any{
			"currency": s.asset.Currency,
			"issuer":   s.asset.IssuingAddress,
			"value":    "1000",
		},
	}, nil)
}

func (s *ServiceTestSuite) TestCreateRequest() {
	req, token := s.invite()

	s.Equal(StatusInvited, req.Status)
	s.Equal(s.now.Add(24*time.Hour), req.ExpiresAt)
	s.Equal(HashToken(token), req.TokenHash)
	s.NotEqual(token, req.TokenHash, "the raw token is never persisted")

	s.Run("second open invitation for the same holder conflicts", func() {
		_, _, err := s.svc.CreateRequest(s.ctx, s.asset.ID, s.holder, "1000")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("inactive asset is rejected", func() {
		s.Require().NoError(s.assets.UpdateStatus(s.ctx, s.asset.ID, asset.StatusDraft))
		_, _, err := s.svc.CreateRequest(s.ctx, s.asset.ID, id.HolderAddress("rOther"), "1")
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotActive))
	})
}

func (s *ServiceTestSuite) TestDescribe() {
	_, token := s.invite()

	req, a, err := s.svc.Describe(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(s.holder, req.Holder)
	s.Equal(s.asset.Name, a.Name)

	s.Run("unknown token", func() {
		_, _, err := s.svc.Describe(s.ctx, "no-such-token")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("expired link", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(25*time.Hour))
		_, _, err := s.svc.Describe(later, token)
		s.True(dErrors.HasCode(err, dErrors.CodeRequestExpired))
	})
}

func (s *ServiceTestSuite) TestComplete() {
	req, token := s.invite()
	s.trustSet("TX1")

	result, duplicate, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX1"})
	s.Require().NoError(err)
	s.False(duplicate)
	s.Equal(req.ID, result.RequestID)
	s.Equal("TX1", result.TxHash)

	stored, err := s.store.GetByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusConsumed, stored.Status)
	s.Equal("TX1", stored.TxHash)
	s.Require().NotNil(stored.ConsumedAt)

	rows, err := s.auths.ListByHolder(s.ctx, s.asset.ID, s.holder)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(authorization.StatusHolderRequested, rows[0].Status)
	s.Equal(authorization.InitiatedByHolder, rows[0].InitiatedBy)
	s.Equal("1000", rows[0].Limit)
	s.Equal("TX1", rows[0].TxHash)
}

func (s *ServiceTestSuite) TestCompleteIsSingleUse() {
	_, token := s.invite()
	s.trustSet("TX1")

	first, duplicate, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX1"})
	s.Require().NoError(err)
	s.False(duplicate)

	s.Run("same proof replays the first outcome", func() {
		// The request is CONSUMED now, so a second execution would fail;
		// the idempotency guard must intercept first.
		replayed, duplicate, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX1"})
		s.Require().NoError(err)
		s.True(duplicate)
		s.Equal(first.AuthorizationID, replayed.AuthorizationID)

		rows, listErr := s.auths.ListByHolder(s.ctx, s.asset.ID, s.holder)
		s.Require().NoError(listErr)
		s.Len(rows, 1, "no second authorization row")
	})

	s.Run("a different proof on a consumed request is rejected", func() {
		_, _, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX-OTHER"})
		s.True(dErrors.HasCode(err, dErrors.CodeRequestAlreadyProcessed))
	})
}

func (s *ServiceTestSuite) TestCompleteRejectsBadProof() {
	req, token := s.invite()

	s.Run("wrong signer", func() {
		s.adapter.EXPECT().GetTransaction(gomock.Any(), "TX2").Return(map[string]any{
			"TransactionType": "TrustSet",
			"Account":         "rSomeoneElse",
			"LimitAmount": map[string]any{
				"currency": s.asset.Currency,
				"issuer":   s.asset.IssuingAddress,
			},
		}, nil)
		_, _, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX2"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})

	s.Run("wrong transaction type", func() {
		s.adapter.EXPECT().GetTransaction(gomock.Any(), "TX3").Return(map[string]any{
			"TransactionType": "Payment",
			"Account":         s.holder.String(),
		}, nil)
		_, _, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX3"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})

	s.Run("ledger unreachable", func() {
		s.adapter.EXPECT().GetTransaction(gomock.Any(), "TX4").
			Return(nil, ledger.ErrUnavailable)
		_, _, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX4"})
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
	})

	stored, err := s.store.GetByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusInvited, stored.Status, "a rejected proof leaves the request open")

	rows, err := s.auths.ListByHolder(s.ctx, s.asset.ID, s.holder)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *ServiceTestSuite) TestCompleteAfterExpiry() {
	_, token := s.invite()

	later := requestcontext.WithTime(context.Background(), s.now.Add(25*time.Hour))
	_, _, err := s.svc.Complete(later, token, Proof{TxHash: "TX1"})
	s.True(dErrors.HasCode(err, dErrors.CodeRequestExpired))
}

func (s *ServiceTestSuite) TestCancel() {
	req, token := s.invite()

	cancelled, err := s.svc.Cancel(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, cancelled.Status)

	s.Run("cancelled link can no longer be completed", func() {
		_, _, err := s.svc.Complete(s.ctx, token, Proof{TxHash: "TX1"})
		s.True(dErrors.HasCode(err, dErrors.CodeRequestAlreadyProcessed))
	})

	s.Run("second cancel is rejected", func() {
		_, err := s.svc.Cancel(s.ctx, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeRequestAlreadyProcessed))
	})
}

func (s *ServiceTestSuite) TestExpireStale() {
	_, token := s.invite()

	later := requestcontext.WithTime(context.Background(), s.now.Add(25*time.Hour))
	changed, err := s.svc.ExpireStale(later)
	s.Require().NoError(err)
	s.Equal(1, changed)

	_, _, err = s.svc.Describe(later, token)
	s.True(dErrors.HasCode(err, dErrors.CodeRequestExpired))

	s.Run("second sweep changes nothing", func() {
		changed, err := s.svc.ExpireStale(later)
		s.Require().NoError(err)
		s.Zero(changed)
	})
}
