package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"donorcal/internal/location"
	locationhandler "donorcal/internal/location/handler"
	"donorcal/internal/platform/metrics"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/middleware/auth"
	"donorcal/pkg/requestcontext"
	"donorcal/pkg/testutil"
)

type staticValidator struct{ donor id.DonorID }

func (v staticValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.JWTClaims{DonorID: v.donor.String()}, nil
}

type visitsFunc func(ctx context.Context, donorID id.DonorID) (map[string]int, error)

func (f visitsFunc) LocationVisits(ctx context.Context, donorID id.DonorID) (map[string]int, error) {
	return f(ctx, donorID)
}

type registrarFunc func(r chi.Router)

func (f registrarFunc) Register(r chi.Router) { f(r) }

func newTestRouter(t *testing.T, donor id.DonorID, checks map[string]HealthCheck) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewRouter(Deps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      metrics.New(reg),
		Gatherer:     reg,
		Validator:    staticValidator{donor: donor},
		AdminToken:   "ops",
		Clock:        func() time.Time { return fixed },
		HealthChecks: checks,
		Public: []Registrar{registrarFunc(func(r chi.Router) {
			r.Get("/public", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
		})},
		Protected: []Registrar{registrarFunc(func(r chi.Router) {
			r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(requestcontext.DonorID(r.Context()).String() + " " + requestcontext.Now(r.Context()).Format(time.RFC3339)))
			})
		})},
		Admin: []Registrar{registrarFunc(func(r chi.Router) {
			r.Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
		})},
	})
}

func TestRouterMiddlewareChain(t *testing.T) {
	donor := id.DonorID(uuid.New())
	h := newTestRouter(t, donor, nil)

	t.Run("public routes skip auth", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/public"))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("protected routes see the donor and pinned clock", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/whoami")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, donor.String()+" 2024-06-01T12:00:00Z", rr.Body.String())
	})

	t.Run("protected routes reject bad tokens", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/whoami")
		req.Header.Set("Authorization", "Bearer bad")
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusUnauthorized)
	})

	t.Run("admin routes need the operator token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/ping")
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusUnauthorized)

		req = testutil.NewRequest(t, http.MethodGet, "/admin/ping")
		req.Header.Set("X-Admin-Token", "ops")
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusNoContent)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/metrics"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Contains(t, rr.Body.String(), "donorcal_http_request_duration_seconds")
	})
}

func TestHealth(t *testing.T) {
	donor := id.DonorID(uuid.New())

	healthy := newTestRouter(t, donor, map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	rr := testutil.DoRequest(healthy, testutil.NewRequest(t, http.MethodGet, "/health"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	degraded := newTestRouter(t, donor, map[string]HealthCheck{
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	rr = testutil.DoRequest(degraded, testutil.NewRequest(t, http.MethodGet, "/health"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	resp := testutil.UnmarshalResponse[healthResponse](t, rr)
	assert.Equal(t, "unavailable", resp.Checks["postgres"])
}

func TestLocationRoutes(t *testing.T) {
	donor := id.DonorID(uuid.New())
	var asked id.DonorID
	locations := locationhandler.New(location.Empty(), visitsFunc(func(_ context.Context, donorID id.DonorID) (map[string]int, error) {
		asked = donorID
		return map[string]int{}, nil
	}), slog.New(slog.NewTextHandler(io.Discard, nil)))

	reg := prometheus.NewRegistry()
	h := NewRouter(Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Validator: staticValidator{donor: donor},
		Public:    []Registrar{locations},
		Protected: []Registrar{locations.Progress()},
	})

	t.Run("listing is public", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/locations"))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("progress resolves the bearer donor", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/locations/progress")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, donor, asked)
	})

	t.Run("progress rejects anonymous callers", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/locations/progress"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
