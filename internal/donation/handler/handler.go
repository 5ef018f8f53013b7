package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"donorcal/internal/donation/models"
	"donorcal/internal/donation/service"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/httputil"
	"donorcal/pkg/requestcontext"
)

// Service defines the donation operations the handler needs.
type Service interface {
	Availability(ctx context.Context, donorID id.DonorID, date time.Time) (eligibility.Verdicts, error)
	Record(ctx context.Context, cmd service.CreateCommand) (*models.Record, error)
	Update(ctx context.Context, cmd service.UpdateCommand) (*models.Record, error)
	Delete(ctx context.Context, donorID id.DonorID, recordID id.RecordID) error
	DeleteMany(ctx context.Context, donorID id.DonorID, recordIDs []id.RecordID) (int, error)
	List(ctx context.Context, donorID id.DonorID) ([]*models.Record, error)
	Stats(ctx context.Context, donorID id.DonorID) (models.Stats, error)
}

// Handler wires eligibility and history endpoints to the donation service.
type Handler struct {
	service Service
	logger  *slog.Logger
	zone    *time.Location
}

// Option configures a Handler.
type Option func(*Handler)

// WithZone sets the zone whose calendar day is used when a request omits
// its date. Defaults to UTC.
func WithZone(zone *time.Location) Option {
	return func(h *Handler) {
		if zone != nil {
			h.zone = zone
		}
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger, zone: time.UTC}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts donation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/eligibility", h.HandleEligibility)
	r.Get("/donations", h.HandleList)
	r.Post("/donations", h.HandleCreate)
	r.Post("/donations/bulk-delete", h.HandleBulkDelete)
	r.Get("/donations/stats", h.HandleStats)
	r.Patch("/donations/{id}", h.HandleUpdate)
	r.Delete("/donations/{id}", h.HandleDelete)
}

// HandleEligibility handles GET /eligibility?date=YYYY-MM-DD. The date
// defaults to today in the handler's zone.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}

	date := eligibility.Truncate(requestcontext.Now(ctx).In(h.zone))
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := eligibility.ParseDate(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		date = parsed
	}

	verdicts, err := h.service.Availability(ctx, donorID, date)
	if err != nil {
		h.logFailure(ctx, "availability check failed", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEligibilityResponse(date, verdicts))
}

// HandleList handles GET /donations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}

	records, err := h.service.List(ctx, donorID)
	if err != nil {
		h.logFailure(ctx, "failed to list donations", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(records))
}

// HandleCreate handles POST /donations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Record(ctx, service.CreateCommand{
		DonorID:  donorID,
		Type:     req.parsedType,
		Date:     req.parsedDate,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		h.logFailure(ctx, "failed to record donation", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

// HandleUpdate handles PATCH /donations/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Update(ctx, service.UpdateCommand{
		DonorID:  donorID,
		RecordID: recordID,
		Type:     req.parsedType,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		h.logFailure(ctx, "failed to update donation", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// HandleDelete handles DELETE /donations/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, donorID, recordID); err != nil {
		h.logFailure(ctx, "failed to delete donation", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBulkDelete handles POST /donations/bulk-delete.
func (h *Handler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[BulkDeleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteMany(ctx, donorID, req.parsedIDs)
	if err != nil {
		h.logFailure(ctx, "failed to delete donations", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BulkDeleteResponse{Deleted: deleted})
}

// HandleStats handles GET /donations/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}

	stats, err := h.service.Stats(ctx, donorID)
	if err != nil {
		h.logFailure(ctx, "failed to compute donation stats", donorID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) requireDonor(w http.ResponseWriter, ctx context.Context) (id.DonorID, bool) {
	donorID := requestcontext.DonorID(ctx)
	if donorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.DonorID{}, false
	}
	return donorID, true
}

// logFailure logs server-side failures at error level and client mistakes at debug.
func (h *Handler) logFailure(ctx context.Context, msg string, donorID id.DonorID, err error) {
	level := slog.LevelDebug
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"donor_id", donorID,
		"error", err,
	)
}
