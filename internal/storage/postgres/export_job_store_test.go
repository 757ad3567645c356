package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

func testJob() *domain.ExportJob {
	return &domain.ExportJob{
		JobID:       uuid.New(),
		Status:      domain.ExportStatusPending,
		SubmittedAt: time.Now().UTC(),
		Datasets:    []string{"core_market", "calendar"},
		Request: domain.ExportRequest{
			MarketCodes: []string{"KOSPI"},
			DateFrom:    "2026-01-02",
			DateTo:      "2026-01-31",
		},
	}
}

func TestExportJobStore_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExportJobStore(pool)

	job := testJob()
	require.NoError(t, store.Insert(ctx, job))

	got, err := store.GetByID(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusPending, got.Status)
	require.Equal(t, job.Datasets, got.Datasets)
	require.Equal(t, "KOSPI", got.Request.MarketCodes[0])

	require.NoError(t, store.MarkRunning(ctx, job.JobID, time.Now().UTC()))
	require.NoError(t, store.SetProgress(ctx, job.JobID, 50))

	counts := map[string]int{"core_market": 42, "calendar": 21}
	require.NoError(t, store.MarkSucceeded(ctx, job.JobID, time.Now().UTC(), counts))

	done, err := store.GetByID(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusSucceeded, done.Status)
	require.Equal(t, 100, done.Progress)
	require.Equal(t, counts, done.RowCounts)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.FinishedAt)
}

func TestExportJobStore_MarkFailedFromPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExportJobStore(pool)

	job := testJob()
	require.NoError(t, store.Insert(ctx, job))
	require.NoError(t, store.MarkFailed(ctx, job.JobID, time.Now().UTC(), "DATASET_READ_FAILED", "boom"))

	got, err := store.GetByID(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusFailed, got.Status)
	require.NotNil(t, got.ErrorCode)
	require.Equal(t, "DATASET_READ_FAILED", *got.ErrorCode)
	require.NotNil(t, got.ErrorMessage)
	require.Equal(t, "boom", *got.ErrorMessage)
}

func TestExportJobStore_IllegalTransitions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExportJobStore(pool)

	job := testJob()
	require.NoError(t, store.Insert(ctx, job))

	// progress before running
	require.ErrorIs(t, store.SetProgress(ctx, job.JobID, 10), storage.ErrInvalidTransition)
	// success straight from pending
	require.ErrorIs(t, store.MarkSucceeded(ctx, job.JobID, time.Now().UTC(), nil), storage.ErrInvalidTransition)

	require.NoError(t, store.MarkRunning(ctx, job.JobID, time.Now().UTC()))
	require.ErrorIs(t, store.MarkRunning(ctx, job.JobID, time.Now().UTC()), storage.ErrInvalidTransition)

	require.ErrorIs(t, store.SetProgress(ctx, job.JobID, 101), storage.ErrInvalidInput)

	require.ErrorIs(t, store.MarkRunning(ctx, uuid.New(), time.Now().UTC()), storage.ErrNotFound)
}
