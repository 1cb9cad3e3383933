package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// ErrSubmissionNotFound is returned when no submission matches. It wraps
// repository.ErrNotFound for store-agnostic callers.
var ErrSubmissionNotFound = fmt.Errorf("postgres: %w", repository.ErrNotFound)

// SubmissionRepo implements SubmissionRepository (usable with pool or tx).
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository builds the adapter. Pass a pool or tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

const submissionColumns = `
	id, subject_id, status, attempts, rejection_code, rejection_message,
	receipt_id, filename, payload_snapshot, total_consideration,
	created_at, updated_at`

// Create persists a new submission. One submission per filing subject: a
// duplicate subject is a conflict, not an upsert.
func (r *SubmissionRepo) Create(ctx context.Context, sub *entity.FilingSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	query := `
		INSERT INTO filing_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		sub.ID, sub.SubjectID, sub.Status, sub.Attempts,
		nullIfEmpty(sub.RejectionCode), nullIfEmpty(sub.RejectionMessage),
		nullIfEmpty(sub.ReceiptID), nullIfEmpty(sub.Filename),
		sub.PayloadSnapshot, sub.TotalConsideration,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subject already has a submission: %w", err)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Update rewrites every mutable lifecycle field.
func (r *SubmissionRepo) Update(ctx context.Context, sub *entity.FilingSubmission) error {
	query := `
		UPDATE filing_submissions
		SET status              = $2,
		    attempts            = $3,
		    rejection_code      = $4,
		    rejection_message   = $5,
		    receipt_id          = $6,
		    filename            = $7,
		    payload_snapshot    = $8,
		    total_consideration = $9,
		    updated_at          = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		sub.ID, sub.Status, sub.Attempts,
		nullIfEmpty(sub.RejectionCode), nullIfEmpty(sub.RejectionMessage),
		nullIfEmpty(sub.ReceiptID), nullIfEmpty(sub.Filename),
		sub.PayloadSnapshot, sub.TotalConsideration,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// GetByID fetches one submission by primary key.
func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*entity.FilingSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM filing_submissions WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetBySubject fetches the submission of one filing subject.
func (r *SubmissionRepo) GetBySubject(ctx context.Context, subjectID string) (*entity.FilingSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM filing_submissions WHERE subject_id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, subjectID))
}

// ListByStatus returns submissions in the given statuses, oldest first.
func (r *SubmissionRepo) ListByStatus(ctx context.Context, statuses ...string) ([]*entity.FilingSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM filing_submissions`
	args := []any{}
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*entity.FilingSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *SubmissionRepo) scanOne(row pgx.Row) (*entity.FilingSubmission, error) {
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (*entity.FilingSubmission, error) {
	var (
		sub                 entity.FilingSubmission
		rejCode, rejMsg     *string
		receiptID, filename *string
	)
	err := row.Scan(
		&sub.ID, &sub.SubjectID, &sub.Status, &sub.Attempts,
		&rejCode, &rejMsg, &receiptID, &filename,
		&sub.PayloadSnapshot, &sub.TotalConsideration,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rejCode != nil {
		sub.RejectionCode = *rejCode
	}
	if rejMsg != nil {
		sub.RejectionMessage = *rejMsg
	}
	if receiptID != nil {
		sub.ReceiptID = *receiptID
	}
	if filename != nil {
		sub.Filename = *filename
	}
	return &sub, nil
}
