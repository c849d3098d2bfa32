package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Policy kernel
// ---------------------------------------------------------------------------

type KernelTestSuite struct {
	suite.Suite

	ctx       context.Context
	now       time.Time
	templates *InMemoryTemplateStore
	instances *requirement.InMemoryStore
	kernel    *Kernel

	regimeEU   *Regime
	regimeCH   *Regime
	tmplAuth   *RequirementTemplate
	tmplWhite  *RequirementTemplate
	tmplPause  *RequirementTemplate
	tmplBroken *RequirementTemplate
}

func TestKernelTestSuite(t *testing.T) {
	suite.Run(t, new(KernelTestSuite))
}

func (s *KernelTestSuite) SetupTest() {
	s.now = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithTenantID(s.ctx, id.NewTenantID())
	s.templates = NewInMemoryTemplateStore()
	s.instances = requirement.NewInMemoryStore()
	s.kernel = NewKernel(s.templates, s.instances)

	s.regimeEU = &Regime{
		ID: id.NewRegimeID(), Name: "MiCA", Version: "2024-12",
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.regimeCH = &Regime{
		ID: id.NewRegimeID(), Name: "FINMA-DLT", Version: "2023-06",
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.templates.CreateRegime(s.ctx, s.regimeEU))
	s.Require().NoError(s.templates.CreateRegime(s.ctx, s.regimeCH))

	s.tmplAuth = s.template(s.regimeEU.ID, "holder-authorization",
		`tokenCategory == "ART" && targetLedger == "XRPL"`,
		EnforcementHints{id.LedgerKindXRPL: {"requireAuth": true}})
	s.tmplWhite = s.template(s.regimeCH.ID, "holder-whitelisting",
		`tokenCategory == "ART"`,
		EnforcementHints{id.LedgerKindXRPL: {"trustlineAuthorization": true}})
	s.tmplPause = s.template(s.regimeEU.ID, "pause-control",
		`tokenCategory == "EMT" && targetLedger == "ETHEREUM"`,
		EnforcementHints{id.LedgerKindEVM: {"allowlistGating": true, "pauseControl": true}})
}

// template creates and stores an effective template.
func (s *KernelTestSuite) template(regimeID id.RegimeID, name, applies string, hints EnforcementHints) *RequirementTemplate {
	tpl := &RequirementTemplate{
		ID:                id.NewTemplateID(),
		RegimeID:          regimeID,
		Name:              name,
		ApplicabilityExpr: applies,
		DataPoints:        []string{"verifier", "evidenceRef"},
		EnforcementHints:  hints,
		Version:           1,
		EffectiveFrom:     s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.templates.CreateTemplate(s.ctx, tpl))
	return tpl
}

func (s *KernelTestSuite) matchedNames(eval *Evaluation) []string {
	names := make([]string, 0, len(eval.Matched))
	for _, tpl := range eval.Matched {
		names = append(names, tpl.Name)
	}
	return names
}

func (s *KernelTestSuite) TestEvaluateFacts() {
	s.Run("asset referenced token on xrpl matches both regimes", func() {
		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"tokenCategory": "ART",
			"targetLedger":  "XRPL",
		})
		s.Require().NoError(err)
		s.ElementsMatch([]string{"holder-authorization", "holder-whitelisting"}, s.matchedNames(eval))
		s.Equal(EnforcementPlan{
			id.LedgerKindXRPL: {"requireAuth": true, "trustlineAuthorization": true},
		}, eval.EnforcementPlan)
		s.Empty(eval.SkippedTemplates)
	})

	s.Run("e-money token on ethereum matches the evm controls", func() {
		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"tokenCategory": "EMT",
			"targetLedger":  "ETHEREUM",
		})
		s.Require().NoError(err)
		s.Equal([]string{"pause-control"}, s.matchedNames(eval))
		s.Equal(EnforcementPlan{
			id.LedgerKindEVM: {"allowlistGating": true, "pauseControl": true},
		}, eval.EnforcementPlan)
	})

	s.Run("rationale names the driving fact fields", func() {
		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"tokenCategory": "ART",
			"targetLedger":  "XRPL",
		})
		s.Require().NoError(err)
		byTemplate := make(map[id.TemplateID]RationaleEntry)
		for _, entry := range eval.Rationale {
			byTemplate[entry.TemplateID] = entry
		}
		s.Equal([]string{"tokenCategory", "targetLedger"}, byTemplate[s.tmplAuth.ID].MatchedBy)
		s.Equal([]string{"tokenCategory"}, byTemplate[s.tmplWhite.ID].MatchedBy)
	})

	s.Run("boolean term drives a travel-rule match", func() {
		travel := s.template(s.regimeEU.ID, "travel-rule-data",
			`assetClass == "ART" && isCaspInvolved == true && transferType == "CASP_TO_CASP"`,
			EnforcementHints{id.LedgerKindXRPL: {"travelRuleMemo": true}})

		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"assetClass":     "ART",
			"ledger":         "XRPL",
			"isCaspInvolved": true,
			"transferType":   "CASP_TO_CASP",
		})
		s.Require().NoError(err)
		s.Equal([]string{"travel-rule-data"}, s.matchedNames(eval))
		s.Equal(EnforcementPlan{
			id.LedgerKindXRPL: {"travelRuleMemo": true},
		}, eval.EnforcementPlan)

		s.Require().Len(eval.Rationale, 1)
		s.Equal(travel.ID, eval.Rationale[0].TemplateID)
		s.Equal([]string{"assetClass", "isCaspInvolved", "transferType"},
			eval.Rationale[0].MatchedBy)
	})

	s.Run("missing fact fields never match and never error", func() {
		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{"targetLedger": "XRPL"})
		s.Require().NoError(err)
		s.Empty(eval.Matched)
		s.Empty(eval.EnforcementPlan)
	})

	s.Run("expired template is not considered", func() {
		to := s.now.Add(-time.Hour)
		retired := &RequirementTemplate{
			ID: id.NewTemplateID(), RegimeID: s.regimeEU.ID,
			Name:              "retired-rule",
			ApplicabilityExpr: `tokenCategory == "ART"`,
			Version:           1,
			EffectiveFrom:     s.now.AddDate(-1, 0, 0),
			EffectiveTo:       &to,
		}
		s.Require().NoError(s.templates.CreateTemplate(s.ctx, retired))

		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"tokenCategory": "ART",
			"targetLedger":  "XRPL",
		})
		s.Require().NoError(err)
		s.NotContains(s.matchedNames(eval), "retired-rule")
	})

	s.Run("malformed template is skipped and reported, not fatal", func() {
		s.tmplBroken = &RequirementTemplate{
			ID: id.NewTemplateID(), RegimeID: s.regimeEU.ID,
			Name:              "broken-rule",
			ApplicabilityExpr: `tokenCategory == `,
			Version:           1,
			EffectiveFrom:     s.now.AddDate(-1, 0, 0),
		}
		s.Require().NoError(s.templates.CreateTemplate(s.ctx, s.tmplBroken))

		eval, err := s.kernel.EvaluateFacts(s.ctx, Facts{
			"tokenCategory": "ART",
			"targetLedger":  "XRPL",
		})
		s.Require().NoError(err)
		s.Require().Len(eval.SkippedTemplates, 1)
		s.Equal(s.tmplBroken.ID, eval.SkippedTemplates[0].TemplateID)
		s.Len(eval.Matched, 2)
	})
}

func (s *KernelTestSuite) TestCreateRequirementInstances() {
	assetID := id.NewAssetID()
	facts := Facts{"tokenCategory": "ART", "targetLedger": "XRPL"}

	s.Run("matching templates create required instances", func() {
		eval, instances, err := s.kernel.CreateRequirementInstances(s.ctx, assetID, facts)
		s.Require().NoError(err)
		s.Require().Len(instances, 2)
		s.Len(eval.Matched, 2)
		for _, inst := range instances {
			s.Equal(requirement.StatusRequired, inst.Status)
			s.Equal(assetID, inst.AssetID)
			s.True(inst.IsLive())
			s.NotEmpty(inst.Rationale)
		}
	})

	s.Run("re-evaluation is idempotent", func() {
		_, first, err := s.kernel.CreateRequirementInstances(s.ctx, assetID, facts)
		s.Require().NoError(err)
		_, second, err := s.kernel.CreateRequirementInstances(s.ctx, assetID, facts)
		s.Require().NoError(err)
		s.Require().Len(second, len(first))

		live, err := s.instances.ListLiveByAsset(s.ctx, assetID)
		s.Require().NoError(err)
		s.Len(live, 2)
	})

	s.Run("re-evaluation never regresses a settled instance", func() {
		_, instances, err := s.kernel.CreateRequirementInstances(s.ctx, assetID, facts)
		s.Require().NoError(err)
		s.Require().NotEmpty(instances)

		settled := instances[0]
		settled.Status = requirement.StatusSatisfied
		settled.VerifierID = "verifier-7"
		s.Require().NoError(s.instances.UpdateLive(s.ctx, settled))

		_, after, err := s.kernel.CreateRequirementInstances(s.ctx, assetID, facts)
		s.Require().NoError(err)
		byID := make(map[id.InstanceID]*requirement.Instance)
		for _, inst := range after {
			byID[inst.ID] = inst
		}
		s.Require().Contains(byID, settled.ID)
		s.Equal(requirement.StatusSatisfied, byID[settled.ID].Status)
	})
}
