package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorcal/internal/audit"
	jwttoken "donorcal/internal/jwt_token"
	id "donorcal/pkg/domain"
	"donorcal/pkg/testutil"
)

func newRouter(t *testing.T, reader AuditReader) (*chi.Mux, *jwttoken.JWTService) {
	t.Helper()
	tokens := jwttoken.NewJWTService("k", "donorcal", "donorcal-api")
	r := chi.NewRouter()
	New(tokens, time.Hour, reader, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, tokens
}

func TestIssueToken(t *testing.T) {
	r, tokens := newRouter(t, nil)
	donor := id.DonorID(uuid.New())

	t.Run("for an existing donor", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/admin/tokens", map[string]any{
			"donor_id": donor.String(), "ttl_seconds": 60,
		}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
		assert.Equal(t, int64(60), resp.ExpiresIn)

		got, err := tokens.ExtractDonorID(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, donor, got)
	})

	t.Run("enrols a new donor", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/admin/tokens", map[string]any{}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		_, err := id.ParseDonorID(resp.DonorID)
		assert.NoError(t, err)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/admin/tokens", map[string]any{"donor_id": "nope"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

		rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/admin/tokens", map[string]any{"ttl_seconds": -5}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestAuditTrail(t *testing.T) {
	sink := audit.NewMemorySink()
	donor := id.DonorID(uuid.New())
	require.NoError(t, sink.Append(context.Background(), audit.Event{Action: audit.ActionProfileUpdated, DonorID: donor.String()}))
	require.NoError(t, sink.Append(context.Background(), audit.Event{Action: audit.ActionProfileUpdated, DonorID: uuid.NewString()}))

	r, _ := newRouter(t, sink)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/admin/donors/"+donor.String()+"/audit"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[AuditTrailResponse](t, rr)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, audit.ActionProfileUpdated, resp.Events[0].Action)

	empty := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/admin/donors/"+uuid.NewString()+"/audit"))
	testutil.AssertStatus(t, empty, http.StatusOK)

	unstored, _ := newRouter(t, nil)
	rr = testutil.DoRequest(unstored, testutil.NewRequest(t, http.MethodGet, "/admin/donors/"+donor.String()+"/audit"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
