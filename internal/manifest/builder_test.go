package manifest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/asset"
	"mintgate/internal/policy"
	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Manifest builder
// ---------------------------------------------------------------------------

type BuilderTestSuite struct {
	suite.Suite

	ctx       context.Context
	now       time.Time
	assets    *asset.InMemoryStore
	templates *policy.InMemoryTemplateStore
	reqStore  *requirement.InMemoryStore
	reqSvc    *requirement.Service
	builder   *Builder

	asset      *asset.Asset
	issuanceID id.IssuanceID
	regimeA    *policy.Regime
	regimeB    *policy.Regime
	tmplAuth   *policy.RequirementTemplate
	tmplWhite  *policy.RequirementTemplate
}

func TestBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(BuilderTestSuite))
}

func (s *BuilderTestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.assets = asset.NewInMemoryStore()
	s.templates = policy.NewInMemoryTemplateStore()
	s.reqStore = requirement.NewInMemoryStore()
	s.reqSvc = requirement.NewService(s.reqStore)
	s.builder = NewBuilder(s.reqSvc, s.assets, s.templates, nil)

	s.asset = &asset.Asset{
		ID:             id.NewAssetID(),
		TenantID:       id.NewTenantID(),
		ProductID:      "prod-1",
		OrganizationID: "org-1",
		Name:           "Alpine Reserve Token",
		Ledger:         id.LedgerKindXRPL,
		Currency:       "ART",
		IssuingAddress: "rIssuer1",
		Status:         asset.StatusActive,
	}
	s.Require().NoError(s.assets.Create(s.ctx, s.asset))
	s.issuanceID = id.NewIssuanceID()

	s.regimeA = &policy.Regime{
		ID: id.NewRegimeID(), Name: "MiCA", Version: "2024-12",
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.regimeB = &policy.Regime{
		ID: id.NewRegimeID(), Name: "FINMA-DLT", Version: "2023-06",
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.templates.CreateRegime(s.ctx, s.regimeA))
	s.Require().NoError(s.templates.CreateRegime(s.ctx, s.regimeB))

	s.tmplAuth = &policy.RequirementTemplate{
		ID: id.NewTemplateID(), RegimeID: s.regimeA.ID,
		Name:              "holder-authorization",
		ApplicabilityExpr: `tokenCategory == "ART"`,
		EnforcementHints: policy.EnforcementHints{
			id.LedgerKindXRPL: {"requireAuth": true},
		},
		Version:       1,
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.tmplWhite = &policy.RequirementTemplate{
		ID: id.NewTemplateID(), RegimeID: s.regimeB.ID,
		Name:              "holder-whitelisting",
		ApplicabilityExpr: `tokenCategory == "ART"`,
		EnforcementHints: policy.EnforcementHints{
			id.LedgerKindXRPL: {"trustlineAuthorization": true},
		},
		Version:       1,
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.templates.CreateTemplate(s.ctx, s.tmplAuth))
	s.Require().NoError(s.templates.CreateTemplate(s.ctx, s.tmplWhite))
}

// snapshot seeds two live instances and freezes them for the issuance.
func (s *BuilderTestSuite) snapshot() {
	live := []*requirement.Instance{
		{
			ID: id.NewInstanceID(), TenantID: s.asset.TenantID,
			AssetID: s.asset.ID, TemplateID: s.tmplAuth.ID,
			Status:       requirement.StatusSatisfied,
			Rationale:    "matched on tokenCategory",
			EvidenceRefs: []string{"doc://kyc-policy", "doc://auth-runbook"},
			CreatedAt:    s.now.Add(-time.Hour), UpdatedAt: s.now.Add(-time.Hour),
		},
		{
			ID: id.NewInstanceID(), TenantID: s.asset.TenantID,
			AssetID: s.asset.ID, TemplateID: s.tmplWhite.ID,
			Status:    requirement.StatusException,
			Rationale: "matched on tokenCategory",
			ExceptionReason: "whitelisting handled by transfer agent",
			CreatedAt:       s.now.Add(-time.Hour), UpdatedAt: s.now.Add(-time.Hour),
		},
	}
	for _, inst := range live {
		s.Require().NoError(s.reqStore.CreateLive(s.ctx, inst))
	}
	_, err := s.reqSvc.CreateIssuanceSnapshot(s.ctx, s.asset.ID, s.issuanceID)
	s.Require().NoError(err)
}

func (s *BuilderTestSuite) TestBuild() {
	s.snapshot()

	m, hash, err := s.builder.Build(s.ctx, s.issuanceID, map[string]any{"amount": "1000000"})
	s.Require().NoError(err)
	s.Len(hash, 64)

	s.Equal(s.issuanceID, m.IssuanceID)
	s.Equal("org-1", m.OrganizationID)
	s.Equal("prod-1", m.ProductID)
	s.Equal(s.asset.ID, m.AssetID)
	s.Equal("1000000", m.Facts["amount"])

	s.Equal([]RegimeRef{
		{Name: "FINMA-DLT", Version: "2023-06"},
		{Name: "MiCA", Version: "2024-12"},
	}, m.Regimes, "distinct regimes, sorted")

	s.Require().Len(m.Requirements, 2)
	byName := make(map[string]RequirementSummary, 2)
	for _, r := range m.Requirements {
		byName[r.TemplateName] = r
	}
	s.Equal(string(requirement.StatusSatisfied), byName["holder-authorization"].Status)
	s.Len(byName["holder-authorization"].EvidenceDigest, 64)
	s.Equal("whitelisting handled by transfer agent", byName["holder-whitelisting"].ExceptionReason)

	s.True(m.EnforcementPlan[id.LedgerKindXRPL]["requireAuth"])
	s.True(m.EnforcementPlan[id.LedgerKindXRPL]["trustlineAuthorization"])
}

func (s *BuilderTestSuite) TestBuildIsDeterministic() {
	s.snapshot()

	_, first, err := s.builder.Build(s.ctx, s.issuanceID, map[string]any{"amount": "1", "venue": "otc"})
	s.Require().NoError(err)
	_, second, err := s.builder.Build(s.ctx, s.issuanceID, map[string]any{"venue": "otc", "amount": "1"})
	s.Require().NoError(err)
	s.Equal(first, second, "fact ordering must not change the hash")
}

func (s *BuilderTestSuite) TestHashIgnoresKeyOrder() {
	s.snapshot()
	m, hash, err := s.builder.Build(s.ctx, s.issuanceID, nil)
	s.Require().NoError(err)

	// Round-tripping through a generic map reorders keys arbitrarily; the
	// canonical hash must survive it.
	raw, err := json.Marshal(m)
	s.Require().NoError(err)
	var back Manifest
	s.Require().NoError(json.Unmarshal(raw, &back))
	rehash, err := Hash(&back)
	s.Require().NoError(err)
	s.Equal(hash, rehash)
}

func (s *BuilderTestSuite) TestEvidenceDigestIgnoresRefOrder() {
	a, err := evidenceDigest([]string{"doc://b", "doc://a"})
	s.Require().NoError(err)
	b, err := evidenceDigest([]string{"doc://a", "doc://b"})
	s.Require().NoError(err)
	s.Equal(a, b)

	c, err := evidenceDigest([]string{"doc://a"})
	s.Require().NoError(err)
	s.NotEqual(a, c)
}

func (s *BuilderTestSuite) TestBuildWithoutSnapshot() {
	_, _, err := s.builder.Build(s.ctx, id.NewIssuanceID(), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
