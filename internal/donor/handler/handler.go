package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"donorcal/internal/donor/models"
	"donorcal/internal/donor/service"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/httputil"
	"donorcal/pkg/requestcontext"
)

// Service defines the profile operations the handler needs.
type Service interface {
	Get(ctx context.Context, donorID id.DonorID) (*models.Profile, error)
	Save(ctx context.Context, cmd service.SaveCommand) (*models.Profile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/donor/profile", h.HandleGetProfile)
	r.Put("/donor/profile", h.HandlePutProfile)
}

// HandleGetProfile handles GET /donor/profile.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := requestcontext.DonorID(ctx)
	if donorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.Get(ctx, donorID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load donor profile",
				"request_id", requestcontext.RequestID(ctx),
				"donor_id", donorID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

// HandlePutProfile handles PUT /donor/profile.
func (h *Handler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID := requestcontext.DonorID(ctx)
	if donorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	profile, err := h.service.Save(ctx, service.SaveCommand{
		DonorID:   donorID,
		BirthDate: req.BirthDate,
		Sex:       req.Sex,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "donor profile rejected",
			"request_id", requestID,
			"donor_id", donorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donor profile saved",
		"request_id", requestID,
		"donor_id", donorID,
	)
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}
