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

func testRun() *domain.CollectionRun {
	return &domain.CollectionRun{
		RunID:        uuid.New(),
		PipelineName: "phase1-collect-KOSPI",
		SourceName:   "krx",
		WindowStart:  day("2026-01-02"),
		WindowEnd:    day("2026-01-30"),
		Status:       domain.RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.RunStatusRunning {
		t.Errorf("Status = %q, want RUNNING", got.Status)
	}

	exists, _ := store.Exists(ctx, run.RunID)
	if !exists {
		t.Error("Exists = false for inserted run")
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_Finalize(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	success, failure, warning := 120, 0, 3
	finished := time.Now().UTC()
	err := store.Finalize(ctx, run.RunID, domain.RunStatusPartial, finished, &success, &failure, &warning)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	got, _ := store.GetByID(ctx, run.RunID)
	if got.Status != domain.RunStatusPartial {
		t.Errorf("Status = %q, want PARTIAL", got.Status)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v", got.FinishedAt)
	}
	if got.SuccessCount != 120 || got.WarningCount != 3 {
		t.Errorf("counters = %d/%d/%d", got.SuccessCount, got.FailureCount, got.WarningCount)
	}
}

func TestRunStore_FinalizeNilCountersKeepStored(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	run.SuccessCount = 7
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Finalize(ctx, run.RunID, domain.RunStatusSuccess, time.Now().UTC(), nil, nil, nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	got, _ := store.GetByID(ctx, run.RunID)
	if got.SuccessCount != 7 {
		t.Errorf("SuccessCount = %d, want stored 7", got.SuccessCount)
	}
}

func TestRunStore_FinalizeIsTerminal(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Finalize(ctx, run.RunID, domain.RunStatusFailed, time.Now().UTC(), nil, nil, nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	err := store.Finalize(ctx, run.RunID, domain.RunStatusSuccess, time.Now().UTC(), nil, nil, nil)
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestRunStore_FinalizeRejectsNonTerminalStatus(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun()
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Finalize(ctx, run.RunID, domain.RunStatusRunning, time.Now().UTC(), nil, nil, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	err = store.Finalize(ctx, uuid.New(), domain.RunStatusSuccess, time.Now().UTC(), nil, nil, nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
