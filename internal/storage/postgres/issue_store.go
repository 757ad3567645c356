package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// IssueStore implements storage.IssueStore using PostgreSQL.
type IssueStore struct {
	pool *Pool
}

// NewIssueStore creates a new IssueStore.
func NewIssueStore(pool *Pool) *IssueStore {
	return &IssueStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IssueStore = (*IssueStore)(nil)

// Insert adds a new issue row.
func (s *IssueStore) Insert(ctx context.Context, issue *domain.DataQualityIssue) error {
	query := `
		INSERT INTO data_quality_issues (
			dataset_name, trade_date, instrument_id, index_code, issue_code,
			severity, issue_detail, source_name, detected_at, run_id, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		issue.DatasetName,
		issue.TradeDate,
		issue.InstrumentID,
		issue.IndexCode,
		issue.IssueCode,
		issue.Severity,
		issue.IssueDetail,
		issue.SourceName,
		issue.DetectedAt,
		issue.RunID,
		issue.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

// ListByDateRange retrieves issues whose trade_date falls within [from, to],
// plus dateless issues detected within the same window, ordered by detected_at ASC.
func (s *IssueStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error) {
	query := selectIssue + `
		WHERE (trade_date >= $1 AND trade_date <= $2)
		   OR (trade_date IS NULL AND detected_at >= $1 AND detected_at < $2 + INTERVAL '1 day')
		ORDER BY detected_at ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query issues by date range: %w", err)
	}
	defer rows.Close()

	return scanIssues(rows)
}

// ListByRunID retrieves all issues recorded under one run, ordered by detected_at ASC.
func (s *IssueStore) ListByRunID(ctx context.Context, runID uuid.UUID) ([]*domain.DataQualityIssue, error) {
	query := selectIssue + `
		WHERE run_id = $1
		ORDER BY detected_at ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues by run: %w", err)
	}
	defer rows.Close()

	return scanIssues(rows)
}

const selectIssue = `
	SELECT dataset_name, trade_date, instrument_id, index_code, issue_code,
	       severity, issue_detail, source_name, detected_at, run_id, resolved_at
	FROM data_quality_issues
`

func scanIssues(rows pgx.Rows) ([]*domain.DataQualityIssue, error) {
	var issues []*domain.DataQualityIssue
	for rows.Next() {
		var issue domain.DataQualityIssue
		err := rows.Scan(
			&issue.DatasetName,
			&issue.TradeDate,
			&issue.InstrumentID,
			&issue.IndexCode,
			&issue.IssueCode,
			&issue.Severity,
			&issue.IssueDetail,
			&issue.SourceName,
			&issue.DetectedAt,
			&issue.RunID,
			&issue.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, &issue)
	}
	return issues, rows.Err()
}
