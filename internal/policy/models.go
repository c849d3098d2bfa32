// Package policy implements the compliance policy kernel: regime-scoped
// requirement templates, their evaluation against asset facts, and the
// synthesis of a unified enforcement plan.
package policy

import (
	"strconv"
	"time"

	"mintgate/internal/policy/expr"
	id "mintgate/pkg/domain"
)

// Facts is the flat regulatory-fact record evaluated against template
// applicability expressions.
type Facts = expr.Facts

// Regime is a named, versioned regulatory framework. Immutable once
// published; a later version supersedes it, nothing mutates it in place.
type Regime struct {
	ID            id.RegimeID
	Name          string
	Version       string
	EffectiveFrom time.Time
	// EffectiveTo nil means open-ended.
	EffectiveTo *time.Time
}

// EffectiveAt reports whether the regime's validity window contains t.
func (r *Regime) EffectiveAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}

// EnforcementHints maps a ledger kind to the control flags templates demand
// on that ledger, e.g. {"xrpl": {"requireAuth": true}}.
type EnforcementHints map[id.LedgerKind]map[string]bool

// RequirementTemplate is one versioned rule: a predicate over facts, the
// evidence it demands, and the ledger controls it requires when it applies.
// Templates are never deleted, so historical evaluations stay reproducible.
type RequirementTemplate struct {
	ID                id.TemplateID
	RegimeID          id.RegimeID
	Name              string
	Description       string
	ApplicabilityExpr string
	// DataPoints is the ordered list of evidence field names verifiers must
	// collect when the template applies.
	DataPoints       []string
	EnforcementHints EnforcementHints
	Version          int
	EffectiveFrom    time.Time
	EffectiveTo      *time.Time
}

// EffectiveAt reports whether the template's validity window contains t.
// Windows for one template lineage never overlap, so at most one version is
// effective at any instant.
func (t *RequirementTemplate) EffectiveAt(at time.Time) bool {
	if at.Before(t.EffectiveFrom) {
		return false
	}
	return t.EffectiveTo == nil || at.Before(*t.EffectiveTo)
}

// CacheKey keys the compiled-expression cache. Templates are immutable per
// (id, version), so the key never needs invalidation.
func (t *RequirementTemplate) CacheKey() string {
	return t.ID.String() + ":v" + strconv.Itoa(t.Version)
}

// EnforcementPlan is the merged set of ledger control flags the matched
// templates collectively demand, keyed by ledger kind. Merging is a logical
// OR per flag: a control required by any matched template is in the plan.
type EnforcementPlan map[id.LedgerKind]map[string]bool

// Merge folds hints into the plan.
func (p EnforcementPlan) Merge(hints EnforcementHints) {
	for kind, flags := range hints {
		dst, ok := p[kind]
		if !ok {
			dst = make(map[string]bool, len(flags))
			p[kind] = dst
		}
		for flag, required := range flags {
			if required {
				dst[flag] = true
			}
		}
	}
}

// RationaleEntry explains, for one matched template, which fact fields drove
// the match.
type RationaleEntry struct {
	TemplateID   id.TemplateID `json:"templateId"`
	TemplateName string        `json:"templateName"`
	MatchedBy    []string      `json:"matchedBy"`
}

// SkippedTemplate reports a template excluded from evaluation because its
// predicate failed to parse. Skips are reported, never fatal to the batch.
type SkippedTemplate struct {
	TemplateID id.TemplateID `json:"templateId"`
	Reason     string        `json:"reason"`
}

// Evaluation is the outcome of running the policy kernel against one facts
// record.
type Evaluation struct {
	Matched          []*RequirementTemplate
	EnforcementPlan  EnforcementPlan
	Rationale        []RationaleEntry
	SkippedTemplates []SkippedTemplate
}
