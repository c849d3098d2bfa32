// Package handler wires the compliance manifest endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/manifest"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Builder defines the manifest operation the handler exposes.
type Builder interface {
	Build(ctx context.Context, issuanceID id.IssuanceID, extraFacts map[string]any) (*manifest.Manifest, string, error)
}

// Handler wires the manifest endpoint to the builder.
type Handler struct {
	builder Builder
	logger  *slog.Logger
}

// New constructs a manifest handler.
func New(builder Builder, logger *slog.Logger) *Handler {
	return &Handler{builder: builder, logger: logger}
}

// Register mounts the manifest endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/issuances/{issuanceID}/manifest", h.HandleBuild)
}

// BuildRequest is the HTTP request body for POST
// /issuances/{issuanceID}/manifest.
type BuildRequest struct {
	Facts map[string]any `json:"facts"`
}

// Validate checks the request. An empty facts record is allowed; the
// manifest then carries only the snapshot side.
func (r *BuildRequest) Validate() error { return nil }

// BuildResponse pairs the manifest with its canonical hash.
type BuildResponse struct {
	Manifest *manifest.Manifest `json:"manifest"`
	Hash     string             `json:"hash"`
}

// HandleBuild handles POST /issuances/{issuanceID}/manifest.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	issuanceID, err := id.ParseIssuanceID(chi.URLParam(r, "issuanceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid issuance id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[BuildRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, hash, err := h.builder.Build(ctx, issuanceID, req.Facts)
	if err != nil {
		h.logger.ErrorContext(ctx, "manifest build failed",
			"request_id", requestID,
			"issuance_id", issuanceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BuildResponse{Manifest: m, Hash: hash})
}
