package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"donorcal/internal/donation/models"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
	"donorcal/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const pgUniqueViolation = "23505"

// PostgresStore persists donation history in PostgreSQL. The seq column orders
// each donor's history; Replace draws a fresh value so edits move to the end.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed history store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the donation tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate donation schema: %w", err)
	}
	return nil
}

// WithinDonorLock runs fn in a transaction holding an advisory lock on the
// donor, so concurrent writes for one donor are serialised.
func (s *PostgresStore) WithinDonorLock(ctx context.Context, donorID id.DonorID, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.q(ctx).ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, donorID.String()); err != nil {
			return fmt.Errorf("lock donor: %w", err)
		}
		return fn(ctx)
	})
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.Executor(ctx, s.db)
}

func (s *PostgresStore) Append(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO donation_records (id, donor_id, type, donated_on, location, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`
	err := s.q(ctx).QueryRowContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.DonorID),
		string(record.Type),
		record.Date,
		record.Location,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append record %s: %w", record.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID, recordID id.RecordID) (*models.Record, error) {
	query := `
		SELECT id, donor_id, type, donated_on, location, notes, seq, created_at, updated_at
		FROM donation_records
		WHERE donor_id = $1 AND id = $2
	`
	record, err := scanRecord(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(donorID), uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record by id: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Replace(ctx context.Context, record *models.Record) error {
	query := `
		UPDATE donation_records
		SET type = $3,
			donated_on = $4,
			location = $5,
			notes = $6,
			updated_at = $7,
			seq = nextval(pg_get_serial_sequence('donation_records', 'seq'))
		WHERE donor_id = $1 AND id = $2
		RETURNING seq
	`
	err := s.q(ctx).QueryRowContext(ctx, query,
		uuid.UUID(record.DonorID),
		uuid.UUID(record.ID),
		string(record.Type),
		record.Date,
		record.Location,
		record.Notes,
		record.UpdatedAt,
	).Scan(&record.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, donorID id.DonorID, recordID id.RecordID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM donation_records WHERE donor_id = $1 AND id = $2`,
		uuid.UUID(donorID), uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteMany removes the listed records in one statement.
func (s *PostgresStore) DeleteMany(ctx context.Context, donorID id.DonorID, recordIDs []id.RecordID) (int, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(recordIDs))
	for _, rid := range recordIDs {
		ids = append(ids, rid.String())
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM donation_records WHERE donor_id = $1 AND id = ANY($2::uuid[])`,
		uuid.UUID(donorID), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.DonorID) ([]*models.Record, error) {
	query := `
		SELECT id, donor_id, type, donated_on, location, notes, seq, created_at, updated_at
		FROM donation_records
		WHERE donor_id = $1
		ORDER BY seq
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(donorID))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		recordID, donorID uuid.UUID
		donationType      string
		donatedOn         time.Time
		record            models.Record
	)
	err := row.Scan(
		&recordID,
		&donorID,
		&donationType,
		&donatedOn,
		&record.Location,
		&record.Notes,
		&record.Seq,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.RecordID(recordID)
	record.DonorID = id.DonorID(donorID)
	record.Type = eligibility.DonationType(donationType)
	record.Date = eligibility.Truncate(donatedOn.UTC())
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
