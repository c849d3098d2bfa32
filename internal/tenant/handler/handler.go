// Package handler exposes tenant administration endpoints on the operator
// surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/tenant"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/requestcontext"
)

// Handler wires tenant admin endpoints to the tenant service.
type Handler struct {
	service *tenant.Service
	logger  *slog.Logger
}

func New(service *tenant.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts tenant admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants", h.HandleCreate)
	r.Post("/tenants/{tenantID}/suspend", h.HandleSuspend)
	r.Post("/tenants/{tenantID}/reactivate", h.HandleReactivate)
}

// HandleCreate handles POST /tenants. The response is the only place the API
// key secret ever appears.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, creds, err := h.service.Create(ctx, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTenant(t, creds))
}

// HandleSuspend handles POST /tenants/{tenantID}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.service.Suspend)
}

// HandleReactivate handles POST /tenants/{tenantID}/reactivate.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.service.Reactivate)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tenantID id.TenantID) error) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid tenant id"))
		return
	}
	if err := op(ctx, tenantID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
