// Package httptransport assembles the HTTP surface: middleware chain, health
// and metrics endpoints, and the three route groups (issuer API, external
// holder surface, operator surface).
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authzhandler "mintgate/internal/authorization/handler"
	handoffhandler "mintgate/internal/handoff/handler"
	manifesthandler "mintgate/internal/manifest/handler"
	"mintgate/internal/platform/middleware"
	policyhandler "mintgate/internal/policy/handler"
	requirementhandler "mintgate/internal/requirement/handler"
	tenanthandler "mintgate/internal/tenant/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	Policy        *policyhandler.Handler
	Requirement   *requirementhandler.Handler
	Authorization *authzhandler.Handler
	Handoff       *handoffhandler.Handler
	Manifest      *manifesthandler.Handler
	TenantAdmin   *tenanthandler.Handler

	TenantAuth   middleware.TenantAuthenticator
	OperatorAuth middleware.OperatorValidator

	Logger *slog.Logger
}

// NewRouter wires the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// External holder surface. The one-time token in the path is the only
	// credential.
	r.Group(func(r chi.Router) {
		deps.Handoff.RegisterExternal(r)
	})

	// Issuer API, authenticated by tenant API key.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireTenant(deps.TenantAuth, deps.Logger))
		deps.Policy.Register(r)
		deps.Requirement.Register(r)
		deps.Authorization.Register(r)
		deps.Handoff.Register(r)
		deps.Manifest.Register(r)
	})

	// Operator surface, authenticated by JWT.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator(deps.OperatorAuth, deps.Logger))
		deps.Authorization.RegisterOps(r)
		deps.TenantAdmin.Register(r)
	})

	return r
}
