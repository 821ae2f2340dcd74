package runs

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a run. An existing row with the same id is reset, which
// keeps redelivered queue messages idempotent.
func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO runs (id, request_id, email_hash, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		run.ID,
		nullString(run.RequestID),
		run.EmailHash,
		run.Status,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

// Update writes the outcome fields of a run.
func (r *PGRepo) Update(ctx context.Context, run Run) error {
	const query = `
UPDATE runs
SET status = $2,
	document_key = $3,
	document_location = $4,
	attachment_missing = $5,
	delivered = $6,
	has_cover_letter = $7,
	error_kind = $8,
	error_details = $9,
	updated_at = $10,
	completed_at = $11
WHERE id = $1`
	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, query,
		run.ID,
		run.Status,
		nullString(run.DocumentKey),
		nullString(run.DocumentLocation),
		run.AttachmentMissing,
		run.Delivered,
		run.HasCoverLetter,
		nullString(run.ErrorKind),
		nullString(run.ErrorDetails),
		run.UpdatedAt,
		completedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a run by id.
func (r *PGRepo) Get(ctx context.Context, runID string) (Run, error) {
	const query = `
SELECT id, request_id, email_hash, status, document_key, document_location,
	attachment_missing, delivered, has_cover_letter, error_kind, error_details,
	created_at, updated_at, completed_at
FROM runs
WHERE id = $1`
	var (
		run         Run
		requestID   sql.NullString
		docKey      sql.NullString
		docLocation sql.NullString
		errorKind   sql.NullString
		errDetails  sql.NullString
		completedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&requestID,
		&run.EmailHash,
		&run.Status,
		&docKey,
		&docLocation,
		&run.AttachmentMissing,
		&run.Delivered,
		&run.HasCoverLetter,
		&errorKind,
		&errDetails,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	run.RequestID = requestID.String
	run.DocumentKey = docKey.String
	run.DocumentLocation = docLocation.String
	run.ErrorKind = errorKind.String
	run.ErrorDetails = errDetails.String
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.UpdatedAt = run.UpdatedAt.UTC()
	return run, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
