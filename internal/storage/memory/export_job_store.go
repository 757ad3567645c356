package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// ExportJobStore is an in-memory implementation of storage.ExportJobStore.
type ExportJobStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*domain.ExportJob // keyed by job_id
}

// NewExportJobStore creates a new in-memory export job store.
func NewExportJobStore() *ExportJobStore {
	return &ExportJobStore{
		data: make(map[uuid.UUID]*domain.ExportJob),
	}
}

// Insert adds a new job in PENDING state. Returns ErrDuplicateKey if job_id exists.
func (s *ExportJobStore) Insert(_ context.Context, job *domain.ExportJob) error {
	if job == nil || job.JobID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[job.JobID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *job
	copy.Status = domain.ExportStatusPending
	s.data[job.JobID] = &copy
	return nil
}

// GetByID retrieves a job. Returns ErrNotFound if not exists.
func (s *ExportJobStore) GetByID(_ context.Context, jobID uuid.UUID) (*domain.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.data[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *job
	return &copy, nil
}

// MarkRunning moves a PENDING job to RUNNING.
func (s *ExportJobStore) MarkRunning(_ context.Context, jobID uuid.UUID, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != domain.ExportStatusPending {
		return storage.ErrInvalidTransition
	}

	job.Status = domain.ExportStatusRunning
	job.StartedAt = &startedAt
	return nil
}

// SetProgress updates the progress percentage of a RUNNING job.
func (s *ExportJobStore) SetProgress(_ context.Context, jobID uuid.UUID, progress int) error {
	if progress < 0 || progress > 100 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != domain.ExportStatusRunning {
		return storage.ErrInvalidTransition
	}

	job.Progress = progress
	return nil
}

// MarkSucceeded moves a RUNNING job to SUCCEEDED with its row counts.
func (s *ExportJobStore) MarkSucceeded(_ context.Context, jobID uuid.UUID, finishedAt time.Time, rowCounts map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != domain.ExportStatusRunning {
		return storage.ErrInvalidTransition
	}

	job.Status = domain.ExportStatusSucceeded
	job.Progress = 100
	job.FinishedAt = &finishedAt
	job.RowCounts = make(map[string]int, len(rowCounts))
	for dataset, count := range rowCounts {
		job.RowCounts[dataset] = count
	}
	return nil
}

// MarkFailed moves a PENDING or RUNNING job to FAILED.
func (s *ExportJobStore) MarkFailed(_ context.Context, jobID uuid.UUID, finishedAt time.Time, errorCode, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != domain.ExportStatusPending && job.Status != domain.ExportStatusRunning {
		return storage.ErrInvalidTransition
	}

	job.Status = domain.ExportStatusFailed
	job.FinishedAt = &finishedAt
	job.ErrorCode = &errorCode
	job.ErrorMessage = &errorMessage
	return nil
}

var _ storage.ExportJobStore = (*ExportJobStore)(nil)
