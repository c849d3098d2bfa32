// Package manifest builds the compliance manifest for one issuance: the
// frozen requirement snapshot joined with its asset context, the regimes it
// touched, and the enforcement plan active at issuance time. The manifest's
// canonical hash, not its JSON, is the durable audit anchor.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/gowebpki/jcs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/asset"
	"mintgate/internal/policy"
	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// RegimeRef is one distinct (regime name, version) pair touched by the
// snapshot.
type RegimeRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RequirementSummary is the per-requirement line of the manifest.
type RequirementSummary struct {
	InstanceID   id.InstanceID `json:"instanceId"`
	TemplateID   id.TemplateID `json:"templateId"`
	TemplateName string        `json:"templateName"`
	Status       string        `json:"status"`
	// EvidenceDigest is a deterministic hash over the instance's evidence
	// references; the references themselves stay out of the manifest.
	EvidenceDigest  string `json:"evidenceDigest"`
	Rationale       string `json:"rationale"`
	ExceptionReason string `json:"exceptionReason,omitempty"`
}

// Manifest is the compliance document for one issuance.
type Manifest struct {
	IssuanceID     id.IssuanceID  `json:"issuanceId"`
	OrganizationID string         `json:"organizationId"`
	ProductID      string         `json:"productId"`
	AssetID        id.AssetID     `json:"assetId"`
	AssetName      string         `json:"assetName"`
	Ledger         id.LedgerKind  `json:"ledger"`
	Currency       string         `json:"currency"`
	GeneratedAt    time.Time      `json:"generatedAt"`

	Regimes         []RegimeRef            `json:"regimes"`
	Requirements    []RequirementSummary   `json:"requirements"`
	EnforcementPlan policy.EnforcementPlan `json:"enforcementPlan"`
	Facts           map[string]any         `json:"facts"`
}

// SnapshotReader reads the frozen requirement snapshot of one issuance.
type SnapshotReader interface {
	GetIssuanceSnapshot(ctx context.Context, issuanceID id.IssuanceID) ([]*requirement.Instance, error)
}

// Builder assembles manifests.
type Builder struct {
	snapshots SnapshotReader
	assets    asset.Store
	templates policy.TemplateStore
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewBuilder builds a manifest builder.
func NewBuilder(snapshots SnapshotReader, assets asset.Store, templates policy.TemplateStore, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		snapshots: snapshots,
		assets:    assets,
		templates: templates,
		logger:    logger,
		tracer:    otel.Tracer("mintgate/manifest"),
	}
}

// Build joins the issuance snapshot with its asset context and the caller's
// issuance facts, and returns the manifest together with its canonical hash.
func (b *Builder) Build(ctx context.Context, issuanceID id.IssuanceID, extraFacts map[string]any) (*Manifest, string, error) {
	ctx, span := b.tracer.Start(ctx, "manifest.Build",
		trace.WithAttributes(attribute.String("issuance_id", issuanceID.String())))
	defer span.End()

	snapshot, err := b.snapshots.GetIssuanceSnapshot(ctx, issuanceID)
	if err != nil {
		return nil, "", err
	}
	if len(snapshot) == 0 {
		return nil, "", dErrors.Newf(dErrors.CodeNotFound, "no requirement snapshot exists for issuance %s", issuanceID)
	}

	a, err := b.assets.GetByID(ctx, snapshot[0].AssetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.Newf(dErrors.CodeAssetNotFound, "asset %s not found", snapshot[0].AssetID)
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}

	m := &Manifest{
		IssuanceID:      issuanceID,
		OrganizationID:  a.OrganizationID,
		ProductID:       a.ProductID,
		AssetID:         a.ID,
		AssetName:       a.Name,
		Ledger:          a.Ledger,
		Currency:        a.Currency,
		GeneratedAt:     requestcontext.Now(ctx).UTC(),
		Regimes:         []RegimeRef{},
		Requirements:    make([]RequirementSummary, 0, len(snapshot)),
		EnforcementPlan: policy.EnforcementPlan{},
		Facts:           extraFacts,
	}
	if m.Facts == nil {
		m.Facts = map[string]any{}
	}

	seenRegimes := make(map[RegimeRef]bool)
	for _, inst := range snapshot {
		tmpl, err := b.templates.GetTemplate(ctx, inst.TemplateID)
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template for snapshot row")
		}
		regime, err := b.templates.GetRegime(ctx, tmpl.RegimeID)
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load regime for snapshot row")
		}

		ref := RegimeRef{Name: regime.Name, Version: regime.Version}
		if !seenRegimes[ref] {
			seenRegimes[ref] = true
			m.Regimes = append(m.Regimes, ref)
		}
		m.EnforcementPlan.Merge(tmpl.EnforcementHints)

		digest, err := evidenceDigest(inst.EvidenceRefs)
		if err != nil {
			return nil, "", err
		}
		m.Requirements = append(m.Requirements, RequirementSummary{
			InstanceID:      inst.ID,
			TemplateID:      inst.TemplateID,
			TemplateName:    tmpl.Name,
			Status:          string(inst.Status),
			EvidenceDigest:  digest,
			Rationale:       inst.Rationale,
			ExceptionReason: inst.ExceptionReason,
		})
	}
	sort.Slice(m.Regimes, func(i, j int) bool {
		if m.Regimes[i].Name != m.Regimes[j].Name {
			return m.Regimes[i].Name < m.Regimes[j].Name
		}
		return m.Regimes[i].Version < m.Regimes[j].Version
	})

	hash, err := Hash(m)
	if err != nil {
		return nil, "", err
	}
	b.logger.InfoContext(ctx, "compliance manifest built",
		"issuance_id", issuanceID.String(),
		"requirements", len(m.Requirements),
		"regimes", len(m.Regimes),
		"hash", hash,
	)
	return m, hash, nil
}

// Hash canonicalizes the manifest per RFC 8785 and returns the hex sha256 of
// the canonical form. Key order in the serialized document never affects the
// result.
func Hash(m *Manifest) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode manifest")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize manifest")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// evidenceDigest hashes the sorted evidence references so that two snapshots
// with the same evidence always summarize identically.
func evidenceDigest(refs []string) (string, error) {
	sorted := append([]string(nil), refs...)
	sort.Strings(sorted)
	if sorted == nil {
		sorted = []string{}
	}
	raw, err := json.Marshal(sorted)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode evidence references")
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
