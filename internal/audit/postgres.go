package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"donorcal/pkg/platform/tx"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	action      TEXT NOT NULL,
	donor_id    UUID NOT NULL,
	record_id   UUID,
	type        TEXT,
	date        TEXT,
	request_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_events_donor ON audit_events (donor_id, occurred_at);
`

// PostgresSink stores events in the audit_events table. When the caller is
// inside a transaction (see tx.Run) the event commits or rolls back with it.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Append(ctx context.Context, event Event) error {
	donorID, err := uuid.Parse(event.DonorID)
	if err != nil {
		return fmt.Errorf("audit event donor_id: %w", err)
	}
	var recordID *uuid.UUID
	if event.RecordID != "" {
		parsed, err := uuid.Parse(event.RecordID)
		if err != nil {
			return fmt.Errorf("audit event record_id: %w", err)
		}
		recordID = &parsed
	}

	_, err = tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (id, occurred_at, action, donor_id, record_id, type, date, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.New(),
		event.Timestamp,
		event.Action,
		donorID,
		recordID,
		nullString(event.Type),
		nullString(event.Date),
		nullString(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByDonor returns the donor's events oldest first.
func (s *PostgresSink) ListByDonor(ctx context.Context, donorID string) ([]Event, error) {
	parsed, err := uuid.Parse(donorID)
	if err != nil {
		return nil, fmt.Errorf("audit donor_id: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, action, donor_id, record_id, type, date, request_id
		FROM audit_events
		WHERE donor_id = $1
		ORDER BY occurred_at, id
	`, parsed)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                    Event
			donor                uuid.UUID
			record               uuid.NullUUID
			typ, date, requestID sql.NullString
		)
		if err := rows.Scan(&e.Timestamp, &e.Action, &donor, &record, &typ, &date, &requestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.DonorID = donor.String()
		if record.Valid {
			e.RecordID = record.UUID.String()
		}
		e.Type, e.Date, e.RequestID = typ.String, date.String, requestID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
