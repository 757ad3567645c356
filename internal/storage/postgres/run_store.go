package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run in RUNNING state. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, run *domain.CollectionRun) error {
	query := `
		INSERT INTO collection_runs (
			run_id, pipeline_name, source_name, window_start, window_end,
			status, started_at, success_count, failure_count, warning_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.PipelineName,
		run.SourceName,
		run.WindowStart,
		run.WindowEnd,
		run.Status,
		run.StartedAt,
		run.SuccessCount,
		run.FailureCount,
		run.WarningCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finalize moves a RUNNING run into a terminal state and records its
// counters. Nil counters leave the stored value unchanged. The status guard
// sits in the WHERE clause so concurrent finalizers race safely: exactly one
// UPDATE lands.
func (s *RunStore) Finalize(ctx context.Context, runID uuid.UUID, status string, finishedAt time.Time, success, failure, warning *int) error {
	switch status {
	case domain.RunStatusSuccess, domain.RunStatusPartial, domain.RunStatusFailed:
	default:
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE collection_runs SET
			status        = $2,
			finished_at   = $3,
			success_count = COALESCE($4, success_count),
			failure_count = COALESCE($5, failure_count),
			warning_count = COALESCE($6, warning_count)
		WHERE run_id = $1 AND status = $7
	`

	tag, err := s.pool.Exec(ctx, query, runID, status, finishedAt, success, failure, warning, domain.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := s.Exists(ctx, runID)
		if err != nil {
			return err
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrInvalidTransition
	}
	return nil
}

// GetByID retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID uuid.UUID) (*domain.CollectionRun, error) {
	query := `
		SELECT run_id, pipeline_name, source_name, window_start, window_end,
		       status, started_at, finished_at, success_count, failure_count, warning_count
		FROM collection_runs
		WHERE run_id = $1
	`

	var run domain.CollectionRun
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.PipelineName,
		&run.SourceName,
		&run.WindowStart,
		&run.WindowEnd,
		&run.Status,
		&run.StartedAt,
		&run.FinishedAt,
		&run.SuccessCount,
		&run.FailureCount,
		&run.WarningCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return &run, nil
}

// Exists reports whether a run row is present.
func (s *RunStore) Exists(ctx context.Context, runID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM collection_runs WHERE run_id = $1)`,
		runID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check run exists: %w", err)
	}
	return exists, nil
}
