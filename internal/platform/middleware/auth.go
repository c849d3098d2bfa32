package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mintgate/internal/tenant"
	"mintgate/pkg/requestcontext"
)

// TenantAuthenticator resolves an API key pair to the tenant that owns it.
type TenantAuthenticator interface {
	Authenticate(ctx context.Context, apiKeyID, secret string) (*tenant.Tenant, error)
}

const apiKeyHeader = "X-API-Key"

// RequireTenant authenticates issuer-facing requests. The X-API-Key header
// carries "<key id>.<secret>"; on success the tenant ID and actor land in the
// request context for services to pick up.
func RequireTenant(auth TenantAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			header := r.Header.Get(apiKeyHeader)
			keyID, secret, ok := strings.Cut(header, ".")
			if !ok || keyID == "" || secret == "" {
				logger.WarnContext(ctx, "unauthorized access - missing api key",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or malformed "+apiKeyHeader+" header")
				return
			}

			t, err := auth.Authenticate(ctx, keyID, secret)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid api key",
					"error", err,
					"request_id", requestID,
					"api_key_id", keyID,
				)
				writeUnauthorized(w, "Invalid API credentials")
				return
			}

			ctx = requestcontext.WithTenantID(ctx, t.ID)
			ctx = requestcontext.WithActor(ctx, "tenant:"+t.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
