// Package handler wires requirement instance endpoints: verification actions
// on live instances, the issuance gate, and snapshot creation.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/requirement"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Service defines the requirement operations the handler exposes.
type Service interface {
	ListLive(ctx context.Context, assetID id.AssetID) ([]*requirement.Instance, error)
	MarkSatisfied(ctx context.Context, instanceID id.InstanceID, verifierID string, evidenceRefs []string) (*requirement.Instance, error)
	RecordException(ctx context.Context, instanceID id.InstanceID, reason, verifierID string) (*requirement.Instance, error)
	Acknowledge(ctx context.Context, instanceID id.InstanceID, by, reason string) (*requirement.Instance, error)
	ValidateIssuanceRequirements(ctx context.Context, assetID id.AssetID) (requirement.Validation, error)
	CreateIssuanceSnapshot(ctx context.Context, assetID id.AssetID, issuanceID id.IssuanceID) ([]*requirement.Instance, error)
	GetIssuanceSnapshot(ctx context.Context, issuanceID id.IssuanceID) ([]*requirement.Instance, error)
}

// Handler wires requirement endpoints to the requirement service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a requirement handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts requirement endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/assets/{assetID}/requirements", h.HandleListLive)
	r.Get("/assets/{assetID}/issuance/validate", h.HandleValidate)
	r.Post("/assets/{assetID}/issuances/{issuanceID}/snapshot", h.HandleCreateSnapshot)
	r.Get("/issuances/{issuanceID}/requirements", h.HandleGetSnapshot)
	r.Post("/requirements/{instanceID}/satisfy", h.HandleSatisfy)
	r.Post("/requirements/{instanceID}/exception", h.HandleException)
	r.Post("/requirements/{instanceID}/acknowledge", h.HandleAcknowledge)
}

func (h *Handler) HandleListLive(w http.ResponseWriter, r *http.Request) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	instances, err := h.service.ListLive(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstances(instances))
}

// HandleValidate handles GET /assets/{assetID}/issuance/validate: the
// issuance gate. Always returns 200; the verdict is in the body so a blocked
// issuance names the requirement that blocks it.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	validation, err := h.service.ValidateIssuanceRequirements(ctx, assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !validation.Valid {
		h.logger.InfoContext(ctx, "issuance blocked by requirements",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", assetID.String(),
			"blocked", len(validation.BlockedRequirements),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, validation)
}

func (h *Handler) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	issuanceID, err := id.ParseIssuanceID(chi.URLParam(r, "issuanceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid issuance id"))
		return
	}

	snapshots, err := h.service.CreateIssuanceSnapshot(ctx, assetID, issuanceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "snapshot creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", assetID.String(),
			"issuance_id", issuanceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromInstances(snapshots))
}

func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	issuanceID, err := id.ParseIssuanceID(chi.URLParam(r, "issuanceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid issuance id"))
		return
	}
	snapshots, err := h.service.GetIssuanceSnapshot(r.Context(), issuanceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstances(snapshots))
}

func (h *Handler) HandleSatisfy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SatisfyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	inst, err := h.service.MarkSatisfied(ctx, instanceID, req.VerifierID, req.EvidenceRefs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

func (h *Handler) HandleException(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExceptionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	inst, err := h.service.RecordException(ctx, instanceID, req.Reason, req.VerifierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AcknowledgeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	inst, err := h.service.Acknowledge(ctx, instanceID, req.By, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

func (h *Handler) instanceID(w http.ResponseWriter, r *http.Request) (id.InstanceID, bool) {
	instanceID, err := id.ParseInstanceID(chi.URLParam(r, "instanceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid requirement instance id"))
		return id.InstanceID{}, false
	}
	return instanceID, true
}
