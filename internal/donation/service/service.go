package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"donorcal/internal/audit"
	"donorcal/internal/donation/metrics"
	"donorcal/internal/donation/models"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	"donorcal/pkg/platform/sentinel"
	"donorcal/pkg/requestcontext"
)

// loadTimeout bounds the concurrent profile and history reads.
const loadTimeout = 5 * time.Second

// Store is the history store. ListByDonor returns records in insertion order;
// Replace moves the edited record to the end of that order.
type Store interface {
	Append(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, donorID id.DonorID, recordID id.RecordID) (*models.Record, error)
	Replace(ctx context.Context, record *models.Record) error
	Delete(ctx context.Context, donorID id.DonorID, recordID id.RecordID) error
	DeleteMany(ctx context.Context, donorID id.DonorID, recordIDs []id.RecordID) (int, error)
	ListByDonor(ctx context.Context, donorID id.DonorID) ([]*models.Record, error)
}

// ProfileProvider supplies the birth date and sex the rules read.
type ProfileProvider interface {
	Profile(ctx context.Context, donorID id.DonorID) (eligibility.Profile, error)
}

// DonorLocker runs fn exclusively with respect to other writes for the donor.
// Stores that support transactions hand fn a context carrying the transaction.
type DonorLocker interface {
	WithinDonorLock(ctx context.Context, donorID id.DonorID, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service records donations and answers availability questions for a donor.
type Service struct {
	store          Store
	profiles       ProfileProvider
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	locker         DonorLocker
	tracer         trace.Tracer
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDonorLocker makes check-then-write operations atomic per donor.
func WithDonorLocker(locker DonorLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// New constructs a Service.
func New(store Store, profiles ProfileProvider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		profiles: profiles,
		tracer:   otel.Tracer("donorcal/internal/donation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateCommand describes a new donation. Type and Date are already parsed.
type CreateCommand struct {
	DonorID  id.DonorID
	Type     eligibility.DonationType
	Date     time.Time
	Location string
	Notes    string
}

// UpdateCommand edits an existing record. Nil fields are left unchanged; the
// date is fixed once recorded.
type UpdateCommand struct {
	DonorID  id.DonorID
	RecordID id.RecordID
	Type     *eligibility.DonationType
	Location *string
	Notes    *string
}

// Availability evaluates every donation type for the donor on date.
func (s *Service) Availability(ctx context.Context, donorID id.DonorID, date time.Time) (verdicts eligibility.Verdicts, err error) {
	ctx, span := s.startSpan(ctx, "Availability", donorID, attribute.String("date", eligibility.FormatDate(date)))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	profile, history, err := s.load(ctx, donorID)
	if err != nil {
		return nil, err
	}

	verdicts, err = eligibility.Evaluate(date, profile, models.History(history))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.metrics.ObserveVerdicts(verdicts)
	return verdicts, nil
}

// load reads the profile and a history snapshot in parallel.
func (s *Service) load(ctx context.Context, donorID id.DonorID) (eligibility.Profile, []*models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var profile eligibility.Profile
	g.Go(func() error {
		p, err := s.profiles.Profile(ctx, donorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodePrecondition, "donor profile must be set before checking eligibility")
			}
			return translateErr(err, "failed to load donor profile")
		}
		profile = p
		return nil
	})

	var history []*models.Record
	g.Go(func() error {
		records, err := s.store.ListByDonor(ctx, donorID)
		if err != nil {
			return translateErr(err, "failed to load donation history")
		}
		history = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return eligibility.Profile{}, nil, err
	}
	return profile, history, nil
}

// Record creates a donation on a date where its type is available.
func (s *Service) Record(ctx context.Context, cmd CreateCommand) (record *models.Record, err error) {
	ctx, span := s.startSpan(ctx, "Record", cmd.DonorID, attribute.String("type", string(cmd.Type)))
	defer func() { endSpan(span, err) }()

	location := strings.TrimSpace(cmd.Location)
	if location == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if !cmd.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown donation type")
	}
	if err := eligibility.ValidateDate(cmd.Date); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "date must be a calendar date")
	}

	err = s.withDonorLock(ctx, cmd.DonorID, func(ctx context.Context) error {
		verdicts, err := s.Availability(ctx, cmd.DonorID, cmd.Date)
		if err != nil {
			return err
		}
		if verdict, _ := verdicts.Get(cmd.Type); !verdict.Available {
			return notEligible(verdict, cmd.Date)
		}

		now := requestcontext.Now(ctx)
		record = &models.Record{
			ID:        id.NewRecordID(),
			DonorID:   cmd.DonorID,
			Type:      cmd.Type,
			Date:      cmd.Date,
			Location:  location,
			Notes:     strings.TrimSpace(cmd.Notes),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.Append(ctx, record); err != nil {
			return translateErr(err, "failed to save donation")
		}
		s.emitAudit(ctx, audit.ActionDonationRecorded, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementRecorded(record.Type)
	s.logger.InfoContext(ctx, "donation recorded",
		"request_id", requestcontext.RequestID(ctx),
		"donor_id", record.DonorID,
		"record_id", record.ID,
		"type", record.Type,
	)
	return record, nil
}

// Update edits type, location or notes. Eligibility is not re-checked, and
// the record moves to the end of the insertion order.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (record *models.Record, err error) {
	ctx, span := s.startSpan(ctx, "Update", cmd.DonorID, attribute.String("record_id", cmd.RecordID.String()))
	defer func() { endSpan(span, err) }()

	if cmd.Type != nil && !cmd.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown donation type")
	}
	var location string
	if cmd.Location != nil {
		location = strings.TrimSpace(*cmd.Location)
		if location == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "location is required")
		}
	}

	err = s.withDonorLock(ctx, cmd.DonorID, func(ctx context.Context) error {
		var err error
		record, err = s.store.FindByID(ctx, cmd.DonorID, cmd.RecordID)
		if err != nil {
			return translateErr(err, "failed to load donation")
		}
		if cmd.Type != nil {
			record.Type = *cmd.Type
		}
		if cmd.Location != nil {
			record.Location = location
		}
		if cmd.Notes != nil {
			record.Notes = strings.TrimSpace(*cmd.Notes)
		}
		record.UpdatedAt = requestcontext.Now(ctx)

		if err := s.store.Replace(ctx, record); err != nil {
			return translateErr(err, "failed to update donation")
		}
		s.emitAudit(ctx, audit.ActionDonationUpdated, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Delete(ctx context.Context, donorID id.DonorID, recordID id.RecordID) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", donorID, attribute.String("record_id", recordID.String()))
	defer func() { endSpan(span, err) }()

	return s.withDonorLock(ctx, donorID, func(ctx context.Context) error {
		record, err := s.store.FindByID(ctx, donorID, recordID)
		if err != nil {
			return translateErr(err, "failed to load donation")
		}
		if err := s.store.Delete(ctx, donorID, recordID); err != nil {
			return translateErr(err, "failed to delete donation")
		}
		s.emitAudit(ctx, audit.ActionDonationDeleted, record)
		return nil
	})
}

// DeleteMany removes the listed records that belong to the donor. Unknown IDs
// are skipped; the count of removed records is returned.
func (s *Service) DeleteMany(ctx context.Context, donorID id.DonorID, recordIDs []id.RecordID) (deleted int, err error) {
	ctx, span := s.startSpan(ctx, "DeleteMany", donorID, attribute.Int("requested", len(recordIDs)))
	defer func() { endSpan(span, err) }()

	if len(recordIDs) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}

	err = s.withDonorLock(ctx, donorID, func(ctx context.Context) error {
		history, err := s.store.ListByDonor(ctx, donorID)
		if err != nil {
			return translateErr(err, "failed to load donation history")
		}
		wanted := make(map[id.RecordID]bool, len(recordIDs))
		for _, rid := range recordIDs {
			wanted[rid] = true
		}
		var owned []*models.Record
		for _, r := range history {
			if wanted[r.ID] {
				owned = append(owned, r)
			}
		}
		if len(owned) == 0 {
			return nil
		}

		ids := make([]id.RecordID, 0, len(owned))
		for _, r := range owned {
			ids = append(ids, r.ID)
		}
		deleted, err = s.store.DeleteMany(ctx, donorID, ids)
		if err != nil {
			return translateErr(err, "failed to delete donations")
		}
		for _, r := range owned {
			s.emitAudit(ctx, audit.ActionDonationDeleted, r)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// List returns the donor's history in insertion order.
func (s *Service) List(ctx context.Context, donorID id.DonorID) ([]*models.Record, error) {
	records, err := s.store.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, translateErr(err, "failed to load donation history")
	}
	return records, nil
}

func (s *Service) Stats(ctx context.Context, donorID id.DonorID) (models.Stats, error) {
	records, err := s.List(ctx, donorID)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Summarize(records), nil
}

// LocationVisits counts the donor's donations per location name.
func (s *Service) LocationVisits(ctx context.Context, donorID id.DonorID) (map[string]int, error) {
	records, err := s.List(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return models.LocationVisits(records), nil
}

func (s *Service) withDonorLock(ctx context.Context, donorID id.DonorID, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithinDonorLock(ctx, donorID, fn)
}

func (s *Service) emitAudit(ctx context.Context, action string, record *models.Record) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		DonorID:   record.DonorID.String(),
		RecordID:  record.ID.String(),
		Type:      string(record.Type),
		Date:      eligibility.FormatDate(record.Date),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"record_id", record.ID,
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, op string, donorID id.DonorID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("donor_id", donorID.String()))
	return s.tracer.Start(ctx, "donation."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func notEligible(v eligibility.Verdict, date time.Time) error {
	msg := fmt.Sprintf("%s is not available on %s: %s", v.Type, eligibility.FormatDate(date), v.Reason)
	if v.NextEligible != nil {
		msg += " (next eligible " + eligibility.FormatDate(*v.NextEligible) + ")"
	}
	return dErrors.New(dErrors.CodeNotEligible, msg)
}

// translateErr maps store sentinels onto domain errors. Errors that already
// carry a domain code pass through.
func translateErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "donation already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
