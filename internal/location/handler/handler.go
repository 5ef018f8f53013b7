package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"donorcal/internal/location"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/httputil"
	"donorcal/pkg/requestcontext"
)

// VisitCounter returns how many donations a donor has made at each site name.
type VisitCounter interface {
	LocationVisits(ctx context.Context, donorID id.DonorID) (map[string]int, error)
}

// Handler serves the site directory and per-donor coverage.
type Handler struct {
	directory *location.Directory
	visits    VisitCounter
	logger    *slog.Logger
}

func New(directory *location.Directory, visits VisitCounter, logger *slog.Logger) *Handler {
	return &Handler{directory: directory, visits: visits, logger: logger}
}

// Register mounts the site listing. It needs no credentials.
func (h *Handler) Register(r chi.Router) {
	r.Get("/locations", h.HandleList)
}

// ProgressRoutes mounts the per-donor coverage endpoint. It belongs on a
// router group that runs bearer auth.
type ProgressRoutes struct {
	h *Handler
}

func (h *Handler) Progress() ProgressRoutes {
	return ProgressRoutes{h: h}
}

func (p ProgressRoutes) Register(r chi.Router) {
	r.Get("/locations/progress", p.h.HandleProgress)
}

// HandleList handles GET /locations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Locations: h.directory.All(),
		Total:     h.directory.Len(),
	})
}

// HandleProgress handles GET /locations/progress for the authenticated donor.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := requestcontext.DonorID(ctx)
	if donorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	visits, err := h.visits.LocationVisits(ctx, donorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load location visits",
			"request_id", requestcontext.RequestID(ctx),
			"donor_id", donorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, location.ComputeProgress(h.directory, visits))
}
