package runs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage/memory"
)

func window() (time.Time, time.Time) {
	return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
}

func TestManager_StartInsertsRunningRun(t *testing.T) {
	store := memory.NewRunStore()
	mgr := NewManager(store)
	ctx := context.Background()

	from, to := window()
	runID, err := mgr.Start(ctx, "phase1-collect-KOSPI", "krx", from, to)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	run, err := store.GetByID(ctx, runID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run.Status != domain.RunStatusRunning {
		t.Errorf("Status = %q, want RUNNING", run.Status)
	}
	if run.SuccessCount != 0 || run.FailureCount != 0 || run.WarningCount != 0 {
		t.Errorf("counters not zero: %d/%d/%d", run.SuccessCount, run.FailureCount, run.WarningCount)
	}
}

func TestManager_StartRejectsInvertedWindow(t *testing.T) {
	mgr := NewManager(memory.NewRunStore())
	from, to := window()

	if _, err := mgr.Start(context.Background(), "p", "s", to, from); err == nil {
		t.Fatal("Expected error for window end before start")
	}
}

func TestManager_FinishStatusDerivation(t *testing.T) {
	tests := []struct {
		name                      string
		success, failure, warning int
		want                      string
	}{
		{"clean run", 10, 0, 0, domain.RunStatusSuccess},
		{"warnings only", 10, 0, 3, domain.RunStatusPartial},
		{"failures only", 10, 2, 0, domain.RunStatusFailed},
		{"failure dominates warning", 10, 1, 3, domain.RunStatusFailed},
		{"empty run", 0, 0, 0, domain.RunStatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewRunStore()
			mgr := NewManager(store)
			ctx := context.Background()

			from, to := window()
			runID, err := mgr.Start(ctx, "p", "s", from, to)
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			if err := mgr.Finish(ctx, runID, tt.success, tt.failure, tt.warning); err != nil {
				t.Fatalf("Finish failed: %v", err)
			}

			run, _ := store.GetByID(ctx, runID)
			if run.Status != tt.want {
				t.Errorf("Status = %q, want %q", run.Status, tt.want)
			}
			if run.SuccessCount != tt.success || run.FailureCount != tt.failure || run.WarningCount != tt.warning {
				t.Errorf("counters = %d/%d/%d, want verbatim %d/%d/%d",
					run.SuccessCount, run.FailureCount, run.WarningCount, tt.success, tt.failure, tt.warning)
			}
			if run.FinishedAt == nil {
				t.Error("FinishedAt not set")
			}
		})
	}
}

func TestManager_FailDefaultsFailureCount(t *testing.T) {
	store := memory.NewRunStore()
	mgr := NewManager(store)
	ctx := context.Background()

	from, to := window()
	runID, err := mgr.Start(ctx, "p", "s", from, to)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := mgr.Fail(ctx, runID, 0); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	run, _ := store.GetByID(ctx, runID)
	if run.Status != domain.RunStatusFailed {
		t.Errorf("Status = %q, want FAILED", run.Status)
	}
	if run.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want defaulted 1", run.FailureCount)
	}
}

func TestManager_TerminalTransitionIsExactlyOnce(t *testing.T) {
	store := memory.NewRunStore()
	mgr := NewManager(store)
	ctx := context.Background()

	from, to := window()
	runID, err := mgr.Start(ctx, "p", "s", from, to)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := mgr.Finish(ctx, runID, 1, 0, 0); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if err := mgr.Fail(ctx, runID, 1); err == nil {
		t.Error("Expected error finalizing an already-terminal run")
	}
}

func TestResolveExisting(t *testing.T) {
	store := memory.NewRunStore()
	mgr := NewManager(store)
	ctx := context.Background()

	from, to := window()
	runID, err := mgr.Start(ctx, "p", "s", from, to)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if got := ResolveExisting(ctx, store, &runID); got == nil || *got != runID {
		t.Errorf("persisted run did not resolve: %v", got)
	}

	dangling := uuid.New()
	if got := ResolveExisting(ctx, store, &dangling); got != nil {
		t.Errorf("dangling run resolved to %v, want nil", got)
	}
	if got := ResolveExisting(ctx, store, nil); got != nil {
		t.Errorf("nil run resolved to %v, want nil", got)
	}
}
