// Package handler wires the one-time authorization handoff endpoints. The
// /authorize/{token} routes are the external-facing surface holders reach
// through the emailed link; everything else is issuer-facing.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/asset"
	"mintgate/internal/handoff"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Service defines the handoff operations the handler exposes.
type Service interface {
	CreateRequest(ctx context.Context, assetID id.AssetID, holder id.HolderAddress, limit string) (*handoff.AuthorizationRequest, string, error)
	Describe(ctx context.Context, rawToken string) (*handoff.AuthorizationRequest, *asset.Asset, error)
	Complete(ctx context.Context, rawToken string, proof handoff.Proof) (*handoff.CompletionResult, bool, error)
	Cancel(ctx context.Context, requestID id.RequestID) (*handoff.AuthorizationRequest, error)
	ListByAsset(ctx context.Context, assetID id.AssetID) ([]*handoff.AuthorizationRequest, error)
}

// Handler wires handoff endpoints to the handoff service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handoff handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the issuer-facing handoff endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets/{assetID}/authorization-requests", h.HandleCreate)
	r.Get("/assets/{assetID}/authorization-requests", h.HandleList)
	r.Post("/authorization-requests/{requestID}/cancel", h.HandleCancel)
}

// RegisterExternal mounts the holder-facing authorize endpoints. These are
// authenticated by the single-use token alone.
func (h *Handler) RegisterExternal(r chi.Router) {
	r.Get("/authorize/{token}", h.HandleDescribe)
	r.Post("/authorize/{token}/complete", h.HandleComplete)
}

// HandleCreate handles POST /assets/{assetID}/authorization-requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, link, err := h.service.CreateRequest(ctx, assetID, req.ParsedHolder(), req.Limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "authorization request creation failed",
			"request_id", requestID,
			"asset_id", assetID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "authorization request created",
		"request_id", requestID,
		"asset_id", assetID.String(),
		"authorization_request_id", created.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRequestWithLink(created, link))
}

// HandleList handles GET /assets/{assetID}/authorization-requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	requests, err := h.service.ListByAsset(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*RequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, FromRequest(req))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleCancel handles POST /authorization-requests/{requestID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request id"))
		return
	}
	cancelled, err := h.service.Cancel(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "authorization request cancelled",
		"request_id", requestcontext.RequestID(ctx),
		"authorization_request_id", requestID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRequest(cancelled))
}

// HandleDescribe handles GET /authorize/{token}: the page data for a holder
// opening their one-time link.
func (h *Handler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token is required"))
		return
	}
	req, a, err := h.service.Describe(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDescription(req, a))
}

// HandleComplete handles POST /authorize/{token}/complete: the verified
// external callback that consumes the token.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token is required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, duplicate, err := h.service.Complete(ctx, token, handoff.Proof{TxHash: req.TxHash})
	if err != nil {
		h.logger.WarnContext(ctx, "handoff completion rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "handoff completed",
		"request_id", requestcontext.RequestID(ctx),
		"authorization_request_id", result.RequestID.String(),
		"duplicate", duplicate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCompletion(result, duplicate))
}
