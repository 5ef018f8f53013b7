// Package requesttime pins a single "now" per request so every date derived
// while serving it (today's eligibility, audit timestamps) agrees.
package requesttime

import (
	"net/http"
	"time"

	"donorcal/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
