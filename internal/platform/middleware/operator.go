package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mintgate/pkg/requestcontext"
)

// OperatorValidator checks operator JWTs issued for the ops surface.
type OperatorValidator interface {
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// OperatorClaims is what the ops middleware needs from a validated token.
type OperatorClaims struct {
	Subject string
	Role    string
}

// RequireOperator guards ops endpoints (manual reconciliation, tenant admin)
// behind a bearer JWT.
func RequireOperator(validator OperatorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing operator token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid operator token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, "operator:"+claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
