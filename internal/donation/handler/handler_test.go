package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorcal/internal/donation/models"
	"donorcal/internal/donation/service"
	"donorcal/internal/donation/store"
	donorservice "donorcal/internal/donor/service"
	donorstore "donorcal/internal/donor/store"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	"donorcal/pkg/requestcontext"
	"donorcal/pkg/testutil"
)

var requestTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	router *chi.Mux
	donor  id.DonorID
}

func newFixture(t *testing.T, birthDate, sex string, opts ...Option) *fixture {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	profiles := donorservice.New(donorstore.NewInMemory(), donorservice.WithLogger(logger))
	donor := id.DonorID(uuid.New())
	if birthDate != "" {
		ctx := requestcontext.WithTime(context.Background(), requestTime)
		_, err := profiles.Save(ctx, donorservice.SaveCommand{DonorID: donor, BirthDate: birthDate, Sex: sex})
		require.NoError(t, err)
	}

	svc := service.New(store.NewInMemory(), profiles, service.WithLogger(logger))
	r := chi.NewRouter()
	New(svc, logger, opts...).Register(r)
	return &fixture{router: r, donor: donor}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(f.router, testutil.WithRequestTime(testutil.WithDonor(req, f.donor), requestTime))
}

func (f *fixture) create(t *testing.T, typ, date string) RecordResponse {
	t.Helper()
	rr := f.do(t, testutil.NewJSONRequest(t, http.MethodPost, "/donations", map[string]string{
		"type": typ, "date": date, "location": "新宿東口献血ルーム",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[RecordResponse](t, rr)
}

func TestDonationLifecycle(t *testing.T) {
	f := newFixture(t, "1990-04-15", "male")

	testutil.Given(t, "a donor with no history", func(t *testing.T) {
		rr := f.do(t, testutil.NewRequest(t, http.MethodGet, "/eligibility"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[EligibilityResponse](t, rr)
		assert.Equal(t, "2024-06-01", resp.Date)
		assert.Equal(t, []string{"whole_blood_400", "whole_blood_200", "component"}, resp.AvailableTypes)
		assert.Equal(t, 400, resp.Verdicts[0].VolumeML)
	})

	var first RecordResponse
	testutil.When(t, "a 400 mL donation is recorded", func(t *testing.T) {
		first = f.create(t, "whole_blood_400", "2024-06-01")
		assert.Equal(t, "#FF4C4C", first.Color)
		assert.Equal(t, 400, first.VolumeML)
	})

	testutil.Then(t, "whole blood is blocked until the interval passes", func(t *testing.T) {
		rr := f.do(t, testutil.NewRequest(t, http.MethodGet, "/eligibility?date=2024-07-01"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[EligibilityResponse](t, rr)
		assert.Equal(t, "minimum_interval", resp.Verdicts[0].Reason)
		assert.Equal(t, "2024-08-24", resp.Verdicts[0].NextEligible)
		assert.Empty(t, resp.AvailableTypes)

		blocked := f.do(t, testutil.NewJSONRequest(t, http.MethodPost, "/donations", map[string]string{
			"type": "whole_blood_200", "date": "2024-07-01", "location": "新宿東口献血ルーム",
		}))
		testutil.AssertStatusAndError(t, blocked, http.StatusConflict, "not_eligible")
	})

	testutil.When(t, "the record is edited", func(t *testing.T) {
		second := f.create(t, "component", "2024-09-01")

		rr := f.do(t, testutil.NewJSONRequest(t, http.MethodPatch, "/donations/"+first.ID, map[string]string{"notes": "arm: left"}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		updated := testutil.UnmarshalResponse[RecordResponse](t, rr)
		assert.Equal(t, "arm: left", updated.Notes)
		assert.Equal(t, "2024-06-01", updated.Date)

		list := f.do(t, testutil.NewRequest(t, http.MethodGet, "/donations"))
		testutil.AssertStatus(t, list, http.StatusOK)
		donations := testutil.UnmarshalResponse[ListResponse](t, list).Donations
		require.Len(t, donations, 2)
		assert.Equal(t, second.ID, donations[0].ID)
		assert.Equal(t, first.ID, donations[1].ID, "edited records move to the end")
	})

	testutil.Then(t, "stats and deletion reflect the history", func(t *testing.T) {
		stats := f.do(t, testutil.NewRequest(t, http.MethodGet, "/donations/stats"))
		testutil.AssertStatus(t, stats, http.StatusOK)
		summary := testutil.UnmarshalResponse[models.Stats](t, stats)
		assert.Equal(t, 2, summary.Count)
		assert.Equal(t, 400, summary.TotalVolumeML)
		assert.Equal(t, 1, summary.ByType[eligibility.Component])

		del := f.do(t, testutil.NewRequest(t, http.MethodDelete, "/donations/"+first.ID))
		testutil.AssertStatus(t, del, http.StatusNoContent)

		again := f.do(t, testutil.NewRequest(t, http.MethodDelete, "/donations/"+first.ID))
		testutil.AssertStatusAndError(t, again, http.StatusNotFound, "not_found")
	})
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, "1990-04-15", "female")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing location", map[string]string{"type": "component", "date": "2024-06-01"}},
		{"unknown type", map[string]string{"type": "plasma", "date": "2024-06-01", "location": "x"}},
		{"bad date", map[string]string{"type": "component", "date": "June 1", "location": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, testutil.NewJSONRequest(t, http.MethodPost, "/donations", tc.body))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}
}

func TestEligibilityRequiresProfile(t *testing.T) {
	f := newFixture(t, "", "")
	rr := f.do(t, testutil.NewRequest(t, http.MethodGet, "/eligibility?date=2024-06-01"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "precondition_failed")
}

func TestEligibilityDefaultsToToday(t *testing.T) {
	// 05:00 on June 1 in Japan, still May 31 in UTC.
	early := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)
	jst := time.FixedZone("JST", 9*60*60)

	for name, tc := range map[string]struct {
		opts []Option
		want string
	}{
		"utc by default":  {want: "2024-05-31"},
		"configured zone": {opts: []Option{WithZone(jst)}, want: "2024-06-01"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "1990-04-15", "female", tc.opts...)
			req := testutil.WithRequestTime(testutil.WithDonor(testutil.NewRequest(t, http.MethodGet, "/eligibility"), f.donor), early)
			rr := testutil.DoRequest(f.router, req)
			testutil.AssertStatus(t, rr, http.StatusOK)
			assert.Equal(t, tc.want, testutil.UnmarshalResponse[EligibilityResponse](t, rr).Date)
		})
	}
}

func TestEligibilityRejectsMalformedDate(t *testing.T) {
	f := newFixture(t, "1990-04-15", "female")
	rr := f.do(t, testutil.NewRequest(t, http.MethodGet, "/eligibility?date=2024-13-01"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestBulkDelete(t *testing.T) {
	f := newFixture(t, "1990-04-15", "male")
	a := f.create(t, "component", "2024-01-01")
	b := f.create(t, "component", "2024-03-01")

	rr := f.do(t, testutil.NewJSONRequest(t, http.MethodPost, "/donations/bulk-delete", map[string][]string{
		"ids": {a.ID, b.ID, uuid.NewString()},
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, 2, testutil.UnmarshalResponse[BulkDeleteResponse](t, rr).Deleted)

	bad := f.do(t, testutil.NewJSONRequest(t, http.MethodPost, "/donations/bulk-delete", map[string][]string{"ids": {"nope"}}))
	testutil.AssertStatusAndError(t, bad, http.StatusBadRequest, "validation_error")
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	f := newFixture(t, "1990-04-15", "male")
	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/donations"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}
