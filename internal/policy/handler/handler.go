// Package handler wires policy kernel endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/policy"
	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Kernel defines the policy operations the handler exposes.
type Kernel interface {
	EvaluateFacts(ctx context.Context, facts policy.Facts) (*policy.Evaluation, error)
	CreateRequirementInstances(ctx context.Context, assetID id.AssetID, facts policy.Facts) (*policy.Evaluation, []*requirement.Instance, error)
}

// Handler wires policy endpoints to the kernel and template store.
type Handler struct {
	kernel    Kernel
	templates policy.TemplateStore
	logger    *slog.Logger
}

// New constructs a policy handler with its dependencies.
func New(kernel Kernel, templates policy.TemplateStore, logger *slog.Logger) *Handler {
	return &Handler{kernel: kernel, templates: templates, logger: logger}
}

// Register mounts policy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/policy/evaluate", h.HandleEvaluate)
	r.Post("/policy/regimes", h.HandleCreateRegime)
	r.Post("/policy/templates", h.HandleCreateTemplate)
	r.Post("/assets/{assetID}/requirements/evaluate", h.HandleEvaluateAsset)
}

// HandleEvaluate handles POST /policy/evaluate: a dry-run evaluation that
// persists nothing.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eval, err := h.kernel.EvaluateFacts(ctx, policy.Facts(req.Facts))
	if err != nil {
		h.logger.ErrorContext(ctx, "policy evaluation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy evaluated",
		"request_id", requestID,
		"matched", len(eval.Matched),
		"skipped", len(eval.SkippedTemplates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvaluation(eval, nil))
}

// HandleEvaluateAsset handles POST /assets/{assetID}/requirements/evaluate:
// the persisting evaluation that materializes live requirement instances.
func (h *Handler) HandleEvaluateAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eval, created, err := h.kernel.CreateRequirementInstances(ctx, assetID, policy.Facts(req.Facts))
	if err != nil {
		h.logger.ErrorContext(ctx, "requirement instantiation failed",
			"request_id", requestID,
			"asset_id", assetID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "requirements evaluated",
		"request_id", requestID,
		"asset_id", assetID.String(),
		"matched", len(eval.Matched),
		"created", len(created),
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvaluation(eval, created))
}

// HandleCreateRegime handles POST /policy/regimes.
func (h *Handler) HandleCreateRegime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRegimeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	regime := &policy.Regime{
		ID:            id.NewRegimeID(),
		Name:          req.Name,
		Version:       req.Version,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	}
	if err := h.templates.CreateRegime(ctx, regime); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create regime"))
		return
	}

	h.logger.InfoContext(ctx, "regime created",
		"request_id", requestID,
		"regime_id", regime.ID.String(),
		"name", regime.Name,
		"version", regime.Version,
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"regime_id": regime.ID.String()})
}

// HandleCreateTemplate handles POST /policy/templates.
func (h *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTemplateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	template := req.Template()
	if err := h.templates.CreateTemplate(ctx, template); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create template"))
		return
	}

	h.logger.InfoContext(ctx, "requirement template created",
		"request_id", requestID,
		"template_id", template.ID.String(),
		"name", template.Name,
		"version", template.Version,
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"template_id": template.ID.String()})
}
