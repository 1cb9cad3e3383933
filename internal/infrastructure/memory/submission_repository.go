// Package memory holds in-memory store implementations used by tests and by
// development mode, mirroring the persistence ports backed by PostgreSQL in
// production.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
)

// ErrNotFound is returned when no submission matches. It wraps
// repository.ErrNotFound for store-agnostic callers.
var ErrNotFound = fmt.Errorf("memory: %w", repository.ErrNotFound)

// ErrDuplicate is returned when creating a submission whose subject already
// has one. Submissions are one per filing subject.
var ErrDuplicate = errors.New("memory: subject already has a submission")

// SubmissionRepository is the in-memory implementation of the submission
// persistence port. Values are copied in and out; callers never share
// pointers with the store.
type SubmissionRepository struct {
	mu     sync.RWMutex
	byID   map[string]*entity.FilingSubmission
	bySubj map[string]string // subject id -> submission id
}

// NewSubmissionRepository creates an empty store.
func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{
		byID:   make(map[string]*entity.FilingSubmission),
		bySubj: make(map[string]string),
	}
}

func (r *SubmissionRepository) Create(_ context.Context, sub *entity.FilingSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySubj[sub.SubjectID]; ok {
		return ErrDuplicate
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	cp := *sub
	r.byID[sub.ID] = &cp
	r.bySubj[sub.SubjectID] = sub.ID
	return nil
}

func (r *SubmissionRepository) Update(_ context.Context, sub *entity.FilingSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[sub.ID]; !ok {
		return ErrNotFound
	}
	cp := *sub
	r.byID[sub.ID] = &cp
	return nil
}

func (r *SubmissionRepository) GetByID(_ context.Context, id string) (*entity.FilingSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *SubmissionRepository) GetBySubject(_ context.Context, subjectID string) (*entity.FilingSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySubj[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *SubmissionRepository) ListByStatus(_ context.Context, statuses ...string) ([]*entity.FilingSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := map[string]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []*entity.FilingSubmission
	for _, sub := range r.byID {
		if len(want) == 0 || want[sub.Status] {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
