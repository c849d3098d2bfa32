package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mintgate/internal/asset"
	"mintgate/internal/ledger"
	"mintgate/internal/ledger/mock"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

type ReconcilerTestSuite struct {
	suite.Suite

	ctx     context.Context
	ctrl    *gomock.Controller
	assets  *asset.InMemoryStore
	store   *InMemoryStore
	adapter *mock.MockAdapter
	rec     *Reconciler

	asset *asset.Asset
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.assets = asset.NewInMemoryStore()
	s.store = NewInMemoryStore()
	s.adapter = mock.NewMockAdapter(s.ctrl)
	s.rec = NewReconciler(s.assets, s.store,
		map[id.LedgerKind]ledger.Adapter{id.LedgerKindXRPL: s.adapter})

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
}

func (s *ReconcilerTestSuite) expectLines(lines ...ledger.AccountLine) {
	s.adapter.EXPECT().
		GetAccountLines(gomock.Any(), s.asset.IssuingAddress, "", "").
		Return(lines, nil)
}

func (s *ReconcilerTestSuite) line(account, limit string, authorized bool) ledger.AccountLine {
	return ledger.AccountLine{
		Currency:   s.asset.Currency,
		Account:    account,
		Limit:      limit,
		Authorized: authorized,
	}
}

func (s *ReconcilerTestSuite) history(holder id.HolderAddress) []*Authorization {
	rows, err := s.store.ListByHolder(s.ctx, s.asset.ID, holder)
	s.Require().NoError(err)
	return rows
}

func (s *ReconcilerTestSuite) TestFirstSighting() {
	s.Run("unauthorized line records EXTERNAL", func() {
		s.expectLines(s.line("rHolder1", "100", false))

		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Empty(res.Errors)
		s.Require().Len(res.Appended, 1)

		row := res.Appended[0]
		s.Equal(StatusExternal, row.Status)
		s.Equal("100", row.Limit)
		s.Equal(InitiatedBySystem, row.InitiatedBy)
		s.True(row.External)
		s.Equal("ledger", row.ExternalSource)
	})

	s.Run("authorized line records ISSUER_AUTHORIZED directly", func() {
		// rHolder1's line stays on the ledger unchanged so only the new
		// holder produces a row.
		s.expectLines(
			s.line("rHolder1", "100", false),
			s.line("rHolder2", "50", true),
		)

		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Require().Len(res.Appended, 1)
		s.Equal(id.HolderAddress("rHolder2"), res.Appended[0].Holder)
		s.Equal(StatusIssuerAuthorized, res.Appended[0].Status)
	})
}

func (s *ReconcilerTestSuite) TestTransitions() {
	seed := s.line("rHolder1", "100", false)
	s.expectLines(seed)
	_, err := s.rec.Reconcile(s.ctx, s.asset.ID)
	s.Require().NoError(err)

	s.Run("unchanged line appends nothing", func() {
		s.expectLines(seed)
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Empty(res.Appended)
	})

	s.Run("limit change appends LIMIT_UPDATED with the new limit", func() {
		s.expectLines(s.line("rHolder1", "200", false))
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Require().Len(res.Appended, 1)
		s.Equal(StatusLimitUpdated, res.Appended[0].Status)
		s.Equal("200", res.Appended[0].Limit)
	})

	s.Run("authorization and limit change in one pass append two rows", func() {
		s.expectLines(s.line("rHolder1", "300", true))
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Require().Len(res.Appended, 2)

		s.Equal(StatusIssuerAuthorized, res.Appended[0].Status)
		s.Equal("200", res.Appended[0].Limit, "authorization row carries the prior limit")
		s.Equal(StatusLimitUpdated, res.Appended[1].Status)
		s.Equal("300", res.Appended[1].Limit)
	})

	s.Run("authorization is never silently lost", func() {
		// Ledger flaps back to unauthorized: no transition row exists for
		// that, the recorded state stays ISSUER_AUTHORIZED territory.
		s.expectLines(s.line("rHolder1", "300", false))
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Empty(res.Appended)
	})
}

func (s *ReconcilerTestSuite) TestClosedSweep() {
	s.expectLines(s.line("rHolder1", "100", true))
	_, err := s.rec.Reconcile(s.ctx, s.asset.ID)
	s.Require().NoError(err)

	s.Run("vanished line gets exactly one TRUSTLINE_CLOSED", func() {
		s.expectLines()
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Require().Len(res.Appended, 1)
		s.Equal(StatusTrustlineClosed, res.Appended[0].Status)
		s.Equal("0", res.Appended[0].Limit)
	})

	s.Run("still-absent line appends nothing further", func() {
		s.expectLines()
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Empty(res.Appended)
	})

	s.Run("reappearing line restarts the chain", func() {
		s.expectLines(s.line("rHolder1", "100", false))
		res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.Require().NoError(err)
		s.Require().Len(res.Appended, 1)
		s.Equal(StatusExternal, res.Appended[0].Status)
	})

	history := s.history(id.HolderAddress("rHolder1"))
	s.Require().Len(history, 3)
	s.Equal(StatusIssuerAuthorized, history[0].Status)
	s.Equal(StatusTrustlineClosed, history[1].Status)
	s.Equal(StatusExternal, history[2].Status)
}

func (s *ReconcilerTestSuite) TestIgnoresOtherCurrencies() {
	other := ledger.AccountLine{Currency: "EUR", Account: "rHolder9", Limit: "5"}
	s.expectLines(other, s.line("rHolder1", "10", false))

	res, err := s.rec.Reconcile(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	s.Require().Len(res.Appended, 1)
	s.Equal(id.HolderAddress("rHolder1"), res.Appended[0].Holder)
}

func (s *ReconcilerTestSuite) TestGating() {
	s.Run("unknown asset", func() {
		_, err := s.rec.Reconcile(s.ctx, id.NewAssetID())
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
	})

	s.Run("inactive asset fails before any ledger call", func() {
		s.Require().NoError(s.assets.UpdateStatus(s.ctx, s.asset.ID, asset.StatusRetired))
		_, err := s.rec.Reconcile(s.ctx, s.asset.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotActive))
	})
}

func (s *ReconcilerTestSuite) TestLedgerUnavailable() {
	s.adapter.EXPECT().
		GetAccountLines(gomock.Any(), s.asset.IssuingAddress, "", "").
		Return(nil, ledger.ErrUnavailable)

	_, err := s.rec.Reconcile(s.ctx, s.asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))

	latest, storeErr := s.store.LatestByAsset(s.ctx, s.asset.ID)
	s.Require().NoError(storeErr)
	s.Empty(latest, "a failed pass appends nothing")
}

func (s *ReconcilerTestSuite) TestPerHolderErrorsDoNotStopTheBatch() {
	failing := &failingStore{Store: s.store, failHolder: "rBad"}
	rec := NewReconciler(s.assets, failing,
		map[id.LedgerKind]ledger.Adapter{id.LedgerKindXRPL: s.adapter})

	s.expectLines(
		s.line("rBad", "10", false),
		s.line("rGood", "20", false),
	)

	res, err := rec.Reconcile(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	s.Require().Len(res.Errors, 1)
	s.Equal(id.HolderAddress("rBad"), res.Errors[0].Holder)
	s.Require().Len(res.Appended, 1)
	s.Equal(id.HolderAddress("rGood"), res.Appended[0].Holder)
}

func (s *ReconcilerTestSuite) TestReconcileAll() {
	second := &asset.Asset{
		ID:             id.NewAssetID(),
		TenantID:       s.asset.TenantID,
		Name:           "Second Token",
		Ledger:         id.LedgerKindXRPL,
		Currency:       "SND",
		IssuingAddress: "rIssuer2",
		Status:         asset.StatusActive,
	}
	s.Require().NoError(s.assets.Create(s.ctx, second))
	retired := &asset.Asset{
		ID:     id.NewAssetID(),
		Ledger: id.LedgerKindXRPL,
		Status: asset.StatusRetired,
	}
	s.Require().NoError(s.assets.Create(s.ctx, retired))

	s.adapter.EXPECT().
		GetAccountLines(gomock.Any(), s.asset.IssuingAddress, "", "").
		Return([]ledger.AccountLine{s.line("rHolder1", "100", false)}, nil)
	s.adapter.EXPECT().
		GetAccountLines(gomock.Any(), second.IssuingAddress, "", "").
		Return(nil, ledger.ErrUnavailable)

	results, err := s.rec.ReconcileAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(results, 2, "retired assets are skipped")

	byAsset := make(map[id.AssetID]*Result, len(results))
	for _, res := range results {
		byAsset[res.AssetID] = res
	}
	s.Len(byAsset[s.asset.ID].Appended, 1)
	s.True(dErrors.HasCode(byAsset[second.ID].Err, dErrors.CodeLedgerUnavailable),
		"a failed asset is reported without stopping the others")
}

// failingStore rejects appends for one holder.
type failingStore struct {
	Store
	failHolder id.HolderAddress
}

func (f *failingStore) Append(ctx context.Context, auth *Authorization) error {
	if auth.Holder == f.failHolder {
		return errors.New("constraint violation")
	}
	return f.Store.Append(ctx, auth)
}
