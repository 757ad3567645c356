package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

func testExportJob() *domain.ExportJob {
	return &domain.ExportJob{
		JobID:       uuid.New(),
		Status:      domain.ExportStatusPending,
		SubmittedAt: time.Now().UTC(),
		Datasets:    []string{"core_market", "benchmark"},
		Request: domain.ExportRequest{
			MarketCodes: []string{"KOSPI"},
			DateFrom:    "2026-01-02",
			DateTo:      "2026-01-30",
		},
	}
}

func TestExportJobStore_Lifecycle(t *testing.T) {
	store := NewExportJobStore()
	ctx := context.Background()

	job := testExportJob()
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.MarkRunning(ctx, job.JobID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.SetProgress(ctx, job.JobID, 40); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}

	counts := map[string]int{"core_market": 1200, "benchmark": 40}
	if err := store.MarkSucceeded(ctx, job.JobID, time.Now().UTC(), counts); err != nil {
		t.Fatalf("MarkSucceeded failed: %v", err)
	}

	got, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.ExportStatusSucceeded || got.Progress != 100 {
		t.Errorf("terminal state = %s/%d", got.Status, got.Progress)
	}
	if got.RowCounts["core_market"] != 1200 {
		t.Errorf("RowCounts = %v", got.RowCounts)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestExportJobStore_MarkRunningRequiresPending(t *testing.T) {
	store := NewExportJobStore()
	ctx := context.Background()

	job := testExportJob()
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.MarkRunning(ctx, job.JobID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	err := store.MarkRunning(ctx, job.JobID, time.Now().UTC())
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestExportJobStore_MarkFailedFromPendingOrRunning(t *testing.T) {
	store := NewExportJobStore()
	ctx := context.Background()

	job := testExportJob()
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.JobID, time.Now().UTC(), "EXPORT_FAILED", "sink unavailable"); err != nil {
		t.Fatalf("MarkFailed from PENDING failed: %v", err)
	}

	got, _ := store.GetByID(ctx, job.JobID)
	if got.Status != domain.ExportStatusFailed {
		t.Errorf("Status = %q, want FAILED", got.Status)
	}
	if got.ErrorCode == nil || *got.ErrorCode != "EXPORT_FAILED" {
		t.Errorf("ErrorCode = %v", got.ErrorCode)
	}

	err := store.MarkFailed(ctx, job.JobID, time.Now().UTC(), "EXPORT_FAILED", "again")
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for terminal job, got %v", err)
	}
}

func TestExportJobStore_SetProgressBounds(t *testing.T) {
	store := NewExportJobStore()
	ctx := context.Background()

	job := testExportJob()
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.MarkRunning(ctx, job.JobID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	if err := store.SetProgress(ctx, job.JobID, 101); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("progress 101: got %v", err)
	}
	if err := store.SetProgress(ctx, job.JobID, -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("progress -1: got %v", err)
	}
}
