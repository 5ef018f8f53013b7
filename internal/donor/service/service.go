package service

import (
	"context"
	"errors"
	"log/slog"

	"donorcal/internal/audit"
	"donorcal/internal/donor/models"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/sentinel"
	"donorcal/pkg/requestcontext"
)

type Store interface {
	Get(ctx context.Context, donorID id.DonorID) (*models.Profile, error)
	Save(ctx context.Context, profile *models.Profile) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service owns donor profiles and serves them to the eligibility rules.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SaveCommand carries an already-parsed profile update.
type SaveCommand struct {
	DonorID   id.DonorID
	BirthDate string
	Sex       string
}

func (s *Service) Get(ctx context.Context, donorID id.DonorID) (*models.Profile, error) {
	profile, err := s.store.Get(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor profile")
	}
	return profile, nil
}

// Save validates and stores the donor's profile, replacing any previous one.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (*models.Profile, error) {
	birth, err := eligibility.ParseDate(cmd.BirthDate)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "birth_date must be formatted as YYYY-MM-DD")
	}
	sex, err := eligibility.ParseSex(cmd.Sex)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	profile := &models.Profile{
		DonorID:   cmd.DonorID,
		BirthDate: birth,
		Sex:       sex,
		UpdatedAt: now,
	}
	if err := profile.Validate(eligibility.Truncate(now)); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donor profile")
	}

	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionProfileUpdated,
		DonorID:   cmd.DonorID.String(),
		RequestID: requestcontext.RequestID(ctx),
	})
	return profile, nil
}

// Profile returns the engine view of the donor's profile.
func (s *Service) Profile(ctx context.Context, donorID id.DonorID) (eligibility.Profile, error) {
	profile, err := s.Get(ctx, donorID)
	if err != nil {
		return eligibility.Profile{}, err
	}
	return profile.ToEngine(), nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
