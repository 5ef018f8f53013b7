package testutil

import (
	"context"
	"net/http"
	"time"

	id "donorcal/pkg/domain"
	"donorcal/pkg/requestcontext"
)

// WithDonor authenticates the request as donorID, the way the auth middleware would.
func WithDonor(req *http.Request, donorID id.DonorID) *http.Request {
	return req.WithContext(requestcontext.WithDonorID(req.Context(), donorID))
}

// WithRequestTime pins the request clock so date-relative rules are deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
