// Package handler wires reconciliation and authorization history endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/authorization"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Reconciler defines the reconciliation operations the handler exposes.
type Reconciler interface {
	Reconcile(ctx context.Context, assetID id.AssetID) (*authorization.Result, error)
	ReconcileAll(ctx context.Context) ([]*authorization.Result, error)
}

// Handler wires authorization endpoints to the reconciler and store.
type Handler struct {
	reconciler Reconciler
	store      authorization.Store
	logger     *slog.Logger
}

// New constructs an authorization handler with its dependencies.
func New(reconciler Reconciler, store authorization.Store, logger *slog.Logger) *Handler {
	return &Handler{reconciler: reconciler, store: store, logger: logger}
}

// Register mounts the issuer-facing read endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/assets/{assetID}/authorizations", h.HandleListAuthorizations)
}

// RegisterOps mounts the on-demand reconciliation endpoints. These belong on
// the operator surface.
func (h *Handler) RegisterOps(r chi.Router) {
	r.Post("/assets/{assetID}/reconcile", h.HandleReconcile)
	r.Post("/reconcile", h.HandleReconcileAll)
}

// HandleReconcile handles POST /assets/{assetID}/reconcile: an on-demand
// pass for one asset.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}

	res, err := h.reconciler.Reconcile(ctx, assetID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconciliation failed",
			"request_id", requestID,
			"asset_id", assetID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reconciliation requested",
		"request_id", requestID,
		"asset_id", assetID.String(),
		"appended", len(res.Appended),
		"holder_errors", len(res.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(res))
}

// HandleReconcileAll handles POST /reconcile: an on-demand pass over every
// active asset.
func (h *Handler) HandleReconcileAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := h.reconciler.ReconcileAll(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*ResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, FromResult(res))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleListAuthorizations handles GET /assets/{assetID}/authorizations.
// With ?holder= it returns that holder's full history; without, the latest
// row per holder.
func (h *Handler) HandleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}

	if raw := r.URL.Query().Get("holder"); raw != "" {
		holder, err := id.ParseHolderAddress(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid holder address"))
			return
		}
		rows, err := h.store.ListByHolder(ctx, assetID, holder)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorizations"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromAuthorizations(rows))
		return
	}

	latest, err := h.store.LatestByAsset(ctx, assetID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorizations"))
		return
	}
	rows := make([]*authorization.Authorization, 0, len(latest))
	for _, row := range latest {
		rows = append(rows, row)
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuthorizations(sortBySeq(rows)))
}
