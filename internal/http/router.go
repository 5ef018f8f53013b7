// Package httpapi assembles the public router: shared middleware, health and
// metrics endpoints, and the module handlers behind authentication.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donorcal/internal/platform/metrics"
	"donorcal/pkg/platform/httputil"
	adminmw "donorcal/pkg/platform/middleware/admin"
	"donorcal/pkg/platform/middleware/auth"
	"donorcal/pkg/platform/middleware/metadata"
	"donorcal/pkg/platform/middleware/request"
	"donorcal/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by module handlers.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps collects what the router needs. Nil Gatherer disables /metrics.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Validator    auth.JWTValidator
	AdminToken   string
	Clock        func() time.Time
	HealthChecks map[string]HealthCheck
	Public       []Registrar
	Protected    []Registrar
	Admin        []Registrar
}

// NewRouter wires all endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		request.RequestID,
		metadata.ClientMetadata,
		request.AccessLog(d.Logger),
		request.Recover(d.Logger),
		d.Metrics.Middleware,
		requesttime.Middleware(d.Clock),
		middleware.CleanPath,
	)

	r.Get("/health", healthHandler(d.HealthChecks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range d.Public {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		for _, h := range d.Protected {
			h.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
		for _, h := range d.Admin {
			h.Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
