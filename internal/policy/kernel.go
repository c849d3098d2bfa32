package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/policy/expr"
	policymetrics "mintgate/internal/policy/metrics"
	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// Kernel evaluates regulatory facts against the effective template set and
// keeps per-asset requirement instances in step with the outcome. Rules are
// versioned data in the template store; the kernel carries no regulatory
// knowledge of its own.
type Kernel struct {
	templates TemplateStore
	instances requirement.Store
	cache     *expr.Cache
	logger    *slog.Logger
	metrics   *policymetrics.Metrics
	tracer    trace.Tracer
}

type kernelConfig struct {
	logger  *slog.Logger
	metrics *policymetrics.Metrics
}

// Option configures the Kernel.
type Option func(*kernelConfig)

// WithLogger sets the kernel logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *kernelConfig) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *policymetrics.Metrics) Option {
	return func(c *kernelConfig) { c.metrics = m }
}

// NewKernel builds the policy kernel.
func NewKernel(templates TemplateStore, instances requirement.Store, opts ...Option) *Kernel {
	cfg := &kernelConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Kernel{
		templates: templates,
		instances: instances,
		cache:     expr.NewCache(),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    otel.Tracer("mintgate/policy"),
	}
}

// EvaluateFacts runs every effective template against facts and returns the
// matches, the merged enforcement plan, and per-template rationale. A
// template whose predicate fails to parse is skipped and reported; it never
// aborts the batch.
func (k *Kernel) EvaluateFacts(ctx context.Context, facts Facts) (*Evaluation, error) {
	ctx, span := k.tracer.Start(ctx, "policy.EvaluateFacts")
	defer span.End()

	now := requestcontext.Now(ctx)
	templates, err := k.templates.ListEffectiveTemplates(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load effective templates")
	}

	eval := &Evaluation{
		EnforcementPlan: make(EnforcementPlan),
	}
	for _, tpl := range templates {
		prog, err := k.cache.Get(tpl.CacheKey(), tpl.ApplicabilityExpr)
		if err != nil {
			k.logger.WarnContext(ctx, "skipping template with malformed expression",
				"template_id", tpl.ID,
				"template_name", tpl.Name,
				"error", err,
			)
			eval.SkippedTemplates = append(eval.SkippedTemplates, SkippedTemplate{
				TemplateID: tpl.ID,
				Reason:     err.Error(),
			})
			continue
		}
		if !prog.Eval(facts) {
			continue
		}
		eval.Matched = append(eval.Matched, tpl)
		eval.EnforcementPlan.Merge(tpl.EnforcementHints)
		eval.Rationale = append(eval.Rationale, RationaleEntry{
			TemplateID:   tpl.ID,
			TemplateName: tpl.Name,
			MatchedBy:    prog.MatchedFields(facts),
		})
	}

	span.SetAttributes(
		attribute.Int("policy.templates_effective", len(templates)),
		attribute.Int("policy.templates_matched", len(eval.Matched)),
		attribute.Int("policy.templates_skipped", len(eval.SkippedTemplates)),
	)
	k.metrics.IncEvaluation(len(eval.Matched), len(eval.SkippedTemplates))
	return eval, nil
}

// CreateRequirementInstances runs the same matching as EvaluateFacts and
// idempotently materializes live requirement instances for the asset: a
// newly applicable template creates a REQUIRED instance; an existing
// instance, whatever its status, is left alone so re-evaluation never
// regresses a SATISFIED or EXCEPTION requirement.
func (k *Kernel) CreateRequirementInstances(ctx context.Context, assetID id.AssetID, facts Facts) (*Evaluation, []*requirement.Instance, error) {
	ctx, span := k.tracer.Start(ctx, "policy.CreateRequirementInstances",
		trace.WithAttributes(attribute.String("asset.id", assetID.String())))
	defer span.End()

	eval, err := k.EvaluateFacts(ctx, facts)
	if err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	tenantID := requestcontext.TenantID(ctx)
	created := 0
	instances := make([]*requirement.Instance, 0, len(eval.Matched))
	for i, tpl := range eval.Matched {
		existing, err := k.instances.GetLive(ctx, assetID, tpl.ID)
		switch {
		case err == nil:
			instances = append(instances, existing)
			continue
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirement instance")
		}

		inst := &requirement.Instance{
			ID:         id.NewInstanceID(),
			TenantID:   tenantID,
			AssetID:    assetID,
			TemplateID: tpl.ID,
			Status:     requirement.StatusRequired,
			Rationale:  describeMatch(tpl, eval.Rationale[i]),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := k.instances.CreateLive(ctx, inst); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost a create race; the winner's row is authoritative.
				winner, err := k.instances.GetLive(ctx, assetID, tpl.ID)
				if err != nil {
					return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirement instance")
				}
				instances = append(instances, winner)
				continue
			}
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create requirement instance")
		}
		created++
		instances = append(instances, inst)
	}

	if created > 0 {
		k.logger.InfoContext(ctx, "requirement instances created",
			"asset_id", assetID,
			"created", created,
			"matched", len(eval.Matched),
		)
	}
	k.metrics.IncInstancesCreated(created)
	return eval, instances, nil
}

func describeMatch(tpl *RequirementTemplate, entry RationaleEntry) string {
	if len(entry.MatchedBy) == 0 {
		return fmt.Sprintf("%s applies", tpl.Name)
	}
	return fmt.Sprintf("%s: matched on %s", tpl.Name, strings.Join(entry.MatchedBy, ", "))
}
