// Package middleware holds the HTTP middleware chain: request identity,
// request-scoped time, tenant API key auth and operator JWT auth.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"mintgate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an identifier. An incoming X-Request-ID
// header is trusted so IDs survive proxy hops; otherwise a fresh UUID is
// minted. The ID is echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
