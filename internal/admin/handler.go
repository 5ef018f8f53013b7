// Package admin serves operator endpoints: minting donor access tokens and
// reading a donor's audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"donorcal/internal/audit"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/httputil"
	"donorcal/pkg/requestcontext"
)

// TokenIssuer mints donor access tokens.
type TokenIssuer interface {
	GenerateAccessToken(donorID id.DonorID, expiresIn time.Duration) (string, error)
}

// AuditReader exposes stored audit events. It is nil when events leave the
// process (Kafka) and are not queryable here.
type AuditReader interface {
	ListByDonor(ctx context.Context, donorID string) ([]audit.Event, error)
}

type Handler struct {
	tokens     TokenIssuer
	defaultTTL time.Duration
	audit      AuditReader
	logger     *slog.Logger
}

func New(tokens TokenIssuer, defaultTTL time.Duration, auditReader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, defaultTTL: defaultTTL, audit: auditReader, logger: logger}
}

// Register mounts admin endpoints. Callers wrap the router with the admin
// token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tokens", h.HandleIssueToken)
	r.Get("/admin/donors/{donorID}/audit", h.HandleAuditTrail)
}

// HandleIssueToken handles POST /admin/tokens. Omitting donor_id enrols a
// new donor identity.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	donorID := req.donorID
	if donorID.IsNil() {
		donorID = id.DonorID(uuid.New())
	}
	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, err := h.tokens.GenerateAccessToken(donorID, ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue access token",
			"request_id", requestID,
			"donor_id", donorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access token issued",
		"request_id", requestID,
		"donor_id", donorID,
	)
	httputil.WriteJSON(w, http.StatusCreated, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		DonorID:     donorID.String(),
	})
}

// HandleAuditTrail handles GET /admin/donors/{donorID}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.audit == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit events are not stored by this instance"))
		return
	}

	events, err := h.audit.ListByDonor(ctx, donorID.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"donor_id", donorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditTrailResponse{DonorID: donorID.String(), Events: events})
}
