package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/memory"
)

func TestSubmissionRepository_CreateAndGet(t *testing.T) {
	repo := memory.NewSubmissionRepository()
	ctx := context.Background()

	sub := &entity.FilingSubmission{SubjectID: "txn-1", Status: entity.StatusNotStarted}
	require.NoError(t, repo.Create(ctx, sub))
	assert.NotEmpty(t, sub.ID, "an id is assigned on create")

	got, err := repo.GetBySubject(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	got.Status = entity.StatusQueued // mutating the copy must not touch the store
	again, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNotStarted, again.Status)
}

func TestSubmissionRepository_OnePerSubject(t *testing.T) {
	repo := memory.NewSubmissionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.FilingSubmission{SubjectID: "txn-1"}))
	err := repo.Create(ctx, &entity.FilingSubmission{SubjectID: "txn-1"})
	assert.ErrorIs(t, err, memory.ErrDuplicate)
}

func TestSubmissionRepository_NotFoundWrapsPortSentinel(t *testing.T) {
	repo := memory.NewSubmissionRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetBySubject(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Update(ctx, &entity.FilingSubmission{ID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmissionRepository_ListByStatus(t *testing.T) {
	repo := memory.NewSubmissionRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	subs := []*entity.FilingSubmission{
		{SubjectID: "a", Status: entity.StatusSubmitted, CreatedAt: now.Add(2 * time.Second)},
		{SubjectID: "b", Status: entity.StatusRejected, CreatedAt: now},
		{SubjectID: "c", Status: entity.StatusSubmitted, CreatedAt: now.Add(time.Second)},
	}
	for _, s := range subs {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.ListByStatus(ctx, entity.StatusSubmitted)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].SubjectID, "oldest first")
	assert.Equal(t, "a", got[1].SubjectID)

	all, err := repo.ListByStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "an empty status filter returns everything")
}
