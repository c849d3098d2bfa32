package middleware

import (
	"net/http"
	"time"

	"mintgate/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request so every
// timestamp written while serving it agrees on "now".
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
