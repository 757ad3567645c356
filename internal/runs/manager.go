// Package runs owns the collection-run lifecycle: one row per ingestion
// attempt, created RUNNING and finalized exactly once.
package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// Manager drives the run state machine over a RunStore.
type Manager struct {
	store storage.RunStore
}

// NewManager creates a run manager.
func NewManager(store storage.RunStore) *Manager {
	return &Manager{store: store}
}

// Start inserts a fresh RUNNING run for the given pipeline and window and
// returns its id.
func (m *Manager) Start(ctx context.Context, pipelineName, sourceName string, windowStart, windowEnd time.Time) (uuid.UUID, error) {
	if windowEnd.Before(windowStart) {
		return uuid.Nil, fmt.Errorf("start run: window end %s before start %s", windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}

	run := &domain.CollectionRun{
		RunID:        uuid.New(),
		PipelineName: pipelineName,
		SourceName:   sourceName,
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Status:       domain.RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	if err := m.store.Insert(ctx, run); err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}

	log.Infof("run %s started: %s [%s..%s]", run.RunID, pipelineName,
		windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
	return run.RunID, nil
}

// Finish finalizes a run from its counters. Failures dominate warnings: a
// run with both is FAILED, not PARTIAL.
func (m *Manager) Finish(ctx context.Context, runID uuid.UUID, successCount, failureCount, warningCount int) error {
	status := domain.RunStatusSuccess
	switch {
	case failureCount > 0:
		status = domain.RunStatusFailed
	case warningCount > 0:
		status = domain.RunStatusPartial
	}

	err := m.store.Finalize(ctx, runID, status, time.Now().UTC(), &successCount, &failureCount, &warningCount)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}

	log.Infof("run %s finished: %s (success=%d failure=%d warning=%d)",
		runID, status, successCount, failureCount, warningCount)
	return nil
}

// Fail forces a run into FAILED after an unhandled pipeline error. Counters
// accumulated before the failure are unknown, so only the failure count is
// written.
func (m *Manager) Fail(ctx context.Context, runID uuid.UUID, failureCount int) error {
	if failureCount <= 0 {
		failureCount = 1
	}

	err := m.store.Finalize(ctx, runID, domain.RunStatusFailed, time.Now().UTC(), nil, &failureCount, nil)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", runID, err)
	}

	log.Warnf("run %s marked FAILED (failure=%d)", runID, failureCount)
	return nil
}
