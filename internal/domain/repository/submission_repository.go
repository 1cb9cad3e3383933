package repository

import (
	"context"
	"errors"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
)

// ErrNotFound is the store-agnostic "no such submission" sentinel. Concrete
// repositories wrap it so callers can errors.Is without knowing the store.
var ErrNotFound = errors.New("submission not found")

// SubmissionRepository defines the persistence port for filing submissions.
// Submissions are never deleted; Update rewrites every mutable lifecycle
// field (status, attempts, rejection detail, receipt id, filename, payload).
type SubmissionRepository interface {
	Create(ctx context.Context, sub *entity.FilingSubmission) error
	Update(ctx context.Context, sub *entity.FilingSubmission) error
	GetByID(ctx context.Context, id string) (*entity.FilingSubmission, error)
	GetBySubject(ctx context.Context, subjectID string) (*entity.FilingSubmission, error)
	// ListByStatus returns submissions in one of the given statuses, oldest
	// first. An empty status list returns everything.
	ListByStatus(ctx context.Context, statuses ...string) ([]*entity.FilingSubmission, error)
}
