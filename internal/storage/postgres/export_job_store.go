package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// ExportJobStore implements storage.ExportJobStore using PostgreSQL.
// Row counts and the originating request are stored as JSONB; the dataset
// list as a text array.
type ExportJobStore struct {
	pool *Pool
}

// NewExportJobStore creates a new ExportJobStore.
func NewExportJobStore(pool *Pool) *ExportJobStore {
	return &ExportJobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExportJobStore = (*ExportJobStore)(nil)

// Insert adds a new job in PENDING state. Returns ErrDuplicateKey if job_id exists.
func (s *ExportJobStore) Insert(ctx context.Context, job *domain.ExportJob) error {
	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal export request: %w", err)
	}

	query := `
		INSERT INTO export_jobs (
			job_id, status, progress, submitted_at, datasets, request
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		job.JobID,
		domain.ExportStatusPending,
		0,
		job.SubmittedAt,
		job.Datasets,
		request,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

// GetByID retrieves a job. Returns ErrNotFound if not exists.
func (s *ExportJobStore) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExportJob, error) {
	query := `
		SELECT job_id, status, progress, submitted_at, started_at, finished_at,
		       datasets, row_counts, error_code, error_message, request
		FROM export_jobs
		WHERE job_id = $1
	`

	var (
		job       domain.ExportJob
		rowCounts []byte
		request   []byte
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.JobID,
		&job.Status,
		&job.Progress,
		&job.SubmittedAt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.Datasets,
		&rowCounts,
		&job.ErrorCode,
		&job.ErrorMessage,
		&request,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get export job by id: %w", err)
	}

	if rowCounts != nil {
		if err := json.Unmarshal(rowCounts, &job.RowCounts); err != nil {
			return nil, fmt.Errorf("unmarshal row counts: %w", err)
		}
	}
	if err := json.Unmarshal(request, &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal export request: %w", err)
	}
	return &job, nil
}

// MarkRunning moves a PENDING job to RUNNING.
func (s *ExportJobStore) MarkRunning(ctx context.Context, jobID uuid.UUID, startedAt time.Time) error {
	query := `
		UPDATE export_jobs SET status = $2, started_at = $3
		WHERE job_id = $1 AND status = $4
	`
	tag, err := s.pool.Exec(ctx, query, jobID, domain.ExportStatusRunning, startedAt, domain.ExportStatusPending)
	if err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}
	return s.transitionOutcome(ctx, jobID, tag.RowsAffected())
}

// SetProgress updates the progress percentage of a RUNNING job.
func (s *ExportJobStore) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	if progress < 0 || progress > 100 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE export_jobs SET progress = $2
		WHERE job_id = $1 AND status = $3
	`
	tag, err := s.pool.Exec(ctx, query, jobID, progress, domain.ExportStatusRunning)
	if err != nil {
		return fmt.Errorf("set export job progress: %w", err)
	}
	return s.transitionOutcome(ctx, jobID, tag.RowsAffected())
}

// MarkSucceeded moves a RUNNING job to SUCCEEDED with its row counts.
func (s *ExportJobStore) MarkSucceeded(ctx context.Context, jobID uuid.UUID, finishedAt time.Time, rowCounts map[string]int) error {
	counts, err := json.Marshal(rowCounts)
	if err != nil {
		return fmt.Errorf("marshal row counts: %w", err)
	}

	query := `
		UPDATE export_jobs SET status = $2, progress = 100, finished_at = $3, row_counts = $4
		WHERE job_id = $1 AND status = $5
	`
	tag, err := s.pool.Exec(ctx, query, jobID, domain.ExportStatusSucceeded, finishedAt, counts, domain.ExportStatusRunning)
	if err != nil {
		return fmt.Errorf("mark export job succeeded: %w", err)
	}
	return s.transitionOutcome(ctx, jobID, tag.RowsAffected())
}

// MarkFailed moves a PENDING or RUNNING job to FAILED.
func (s *ExportJobStore) MarkFailed(ctx context.Context, jobID uuid.UUID, finishedAt time.Time, errorCode, errorMessage string) error {
	query := `
		UPDATE export_jobs SET status = $2, finished_at = $3, error_code = $4, error_message = $5
		WHERE job_id = $1 AND status IN ($6, $7)
	`
	tag, err := s.pool.Exec(ctx, query, jobID,
		domain.ExportStatusFailed, finishedAt, errorCode, errorMessage,
		domain.ExportStatusPending, domain.ExportStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return s.transitionOutcome(ctx, jobID, tag.RowsAffected())
}

// transitionOutcome distinguishes a missing job from an illegal state after
// a guarded UPDATE matched nothing.
func (s *ExportJobStore) transitionOutcome(ctx context.Context, jobID uuid.UUID, affected int64) error {
	if affected > 0 {
		return nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM export_jobs WHERE job_id = $1)`,
		jobID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check export job exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrInvalidTransition
}
