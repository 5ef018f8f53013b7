package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorcal/pkg/requestcontext"
	"donorcal/pkg/testutil"
)

func TestRequestIDPropagatesIntoContext(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	req := testutil.NewRequest(t, http.MethodGet, "/")
	req.Header.Set(HeaderRequestID, "req-123")
	rr := testutil.DoRequest(h, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get(HeaderRequestID))

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	assert.NotEmpty(t, rr.Header().Get(HeaderRequestID))
}

func TestAccessLogRecordsRoute(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	r := chi.NewRouter()
	r.Use(AccessLog(logger))
	r.Get("/donations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/donations/abc"))
	require.Equal(t, http.StatusTeapot, rr.Code)
	assert.Contains(t, logs.String(), `"route":"/donations/{id}"`)
	assert.Contains(t, logs.String(), `"status":418`)
}

func TestRecoverWritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.Contains(t, logs.String(), "panic recovered")
}
