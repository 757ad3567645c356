package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*domain.CollectionRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[uuid.UUID]*domain.CollectionRun),
	}
}

// Insert adds a new run in RUNNING state. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, run *domain.CollectionRun) error {
	if run == nil || run.RunID == uuid.Nil || run.PipelineName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *run
	s.data[run.RunID] = &copy
	return nil
}

// Finalize moves a RUNNING run into a terminal state and records its counters.
func (s *RunStore) Finalize(_ context.Context, runID uuid.UUID, status string, finishedAt time.Time, success, failure, warning *int) error {
	switch status {
	case domain.RunStatusSuccess, domain.RunStatusPartial, domain.RunStatusFailed:
	default:
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.data[runID]
	if !ok {
		return storage.ErrNotFound
	}
	if run.Status != domain.RunStatusRunning {
		return storage.ErrInvalidTransition
	}

	run.Status = status
	run.FinishedAt = &finishedAt
	if success != nil {
		run.SuccessCount = *success
	}
	if failure != nil {
		run.FailureCount = *failure
	}
	if warning != nil {
		run.WarningCount = *warning
	}
	return nil
}

// GetByID retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID uuid.UUID) (*domain.CollectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *run
	return &copy, nil
}

// Exists reports whether a run row is present.
func (s *RunStore) Exists(_ context.Context, runID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[runID]
	return ok, nil
}

var _ storage.RunStore = (*RunStore)(nil)
