package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
)

// InstrumentStore provides access to the instruments master table.
type InstrumentStore interface {
	// Upsert inserts or refreshes an instrument keyed by instrument_id.
	// An existing delisting date is never cleared by an upsert carrying nil.
	Upsert(ctx context.Context, inst *domain.Instrument) error

	// GetByID retrieves an instrument. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, instrumentID uuid.UUID) (*domain.Instrument, error)

	// GetByMarketCode retrieves all instruments of a market, ordered by external_code ASC.
	GetByMarketCode(ctx context.Context, marketCode string) ([]*domain.Instrument, error)

	// Exists reports whether an instrument row is present.
	Exists(ctx context.Context, instrumentID uuid.UUID) (bool, error)

	// UpdateDelisting sets the delisting date of an existing instrument.
	// Returns ErrNotFound if the instrument does not exist.
	UpdateDelisting(ctx context.Context, instrumentID uuid.UUID, delistingDate time.Time) error
}

// DailyMarketStore provides access to daily_market_data storage.
type DailyMarketStore interface {
	// Upsert inserts or replaces a bar keyed by (instrument_id, trade_date).
	Upsert(ctx context.Context, row *domain.DailyMarketRow) error

	// GetByInstrumentRange retrieves bars for one instrument within [from, to], ordered by trade_date ASC.
	GetByInstrumentRange(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*domain.DailyMarketRow, error)

	// GetByMarketRange retrieves bars for all instruments of a market within
	// [from, to], ordered by trade_date ASC then external code ASC.
	GetByMarketRange(ctx context.Context, marketCode string, from, to time.Time) ([]*domain.DailyMarketRow, error)
}

// BenchmarkStore provides access to benchmark_index_data storage.
type BenchmarkStore interface {
	// Upsert inserts or replaces a point keyed by (index_code, index_name, trade_date).
	Upsert(ctx context.Context, row *domain.BenchmarkRow) error

	// GetByIndexRange retrieves points for one index code within [from, to],
	// ordered by trade_date ASC then index_name ASC.
	GetByIndexRange(ctx context.Context, indexCode string, from, to time.Time) ([]*domain.BenchmarkRow, error)

	// ListByDateRange retrieves all points within [from, to] across indexes,
	// ordered by trade_date ASC.
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.BenchmarkRow, error)
}

// CalendarStore provides access to trading_calendar storage.
type CalendarStore interface {
	// Upsert inserts or replaces a day keyed by (market_code, trade_date).
	Upsert(ctx context.Context, row *domain.TradingCalendarRow) error

	// OpenDays retrieves the open trading days of a market within [from, to], ordered ASC.
	OpenDays(ctx context.Context, marketCode string, from, to time.Time) ([]time.Time, error)

	// ListByRange retrieves all calendar days of a market within [from, to], ordered ASC.
	ListByRange(ctx context.Context, marketCode string, from, to time.Time) ([]*domain.TradingCalendarRow, error)
}

// IssueStore provides access to data_quality_issues storage. Issues are
// append-only.
type IssueStore interface {
	// Insert adds a new issue row.
	Insert(ctx context.Context, issue *domain.DataQualityIssue) error

	// ListByDateRange retrieves issues whose trade_date falls within [from, to],
	// plus dateless issues detected within the same window, ordered by detected_at ASC.
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error)

	// ListByRunID retrieves all issues recorded under one run, ordered by detected_at ASC.
	ListByRunID(ctx context.Context, runID uuid.UUID) ([]*domain.DataQualityIssue, error)
}

// RunStore provides access to collection_runs storage.
type RunStore interface {
	// Insert adds a new run in RUNNING state. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.CollectionRun) error

	// Finalize moves a RUNNING run into a terminal state and records its
	// counters. Nil counters leave the stored value unchanged.
	// Returns ErrNotFound if the run does not exist and ErrInvalidTransition
	// if it is already terminal.
	Finalize(ctx context.Context, runID uuid.UUID, status string, finishedAt time.Time, success, failure, warning *int) error

	// GetByID retrieves a run. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID uuid.UUID) (*domain.CollectionRun, error)

	// Exists reports whether a run row is present.
	Exists(ctx context.Context, runID uuid.UUID) (bool, error)
}

// ExportJobStore provides access to export_jobs storage.
type ExportJobStore interface {
	// Insert adds a new job in PENDING state. Returns ErrDuplicateKey if job_id exists.
	Insert(ctx context.Context, job *domain.ExportJob) error

	// GetByID retrieves a job. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExportJob, error)

	// MarkRunning moves a PENDING job to RUNNING.
	MarkRunning(ctx context.Context, jobID uuid.UUID, startedAt time.Time) error

	// SetProgress updates the progress percentage of a RUNNING job.
	SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error

	// MarkSucceeded moves a RUNNING job to SUCCEEDED with its row counts.
	MarkSucceeded(ctx context.Context, jobID uuid.UUID, finishedAt time.Time, rowCounts map[string]int) error

	// MarkFailed moves a PENDING or RUNNING job to FAILED.
	MarkFailed(ctx context.Context, jobID uuid.UUID, finishedAt time.Time, errorCode, errorMessage string) error
}

// DelistingStore provides access to the delisting_snapshot table.
type DelistingStore interface {
	// Upsert inserts or refreshes a row keyed by (market_code, external_code).
	Upsert(ctx context.Context, row *domain.DelistingSnapshotRow) error

	// GetByMarket retrieves all snapshot rows of a market, ordered by external_code ASC.
	GetByMarket(ctx context.Context, marketCode string) ([]*domain.DelistingSnapshotRow, error)
}

// DatasetStore reads the curated dataset projections consumed by export jobs.
type DatasetStore interface {
	// CoreMarket retrieves daily bars joined with instrument master
	// attributes, filtered to each instrument's listed window, ordered by
	// trade_date ASC then external_code ASC.
	CoreMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error)

	// SignalMarket is CoreMarket restricted to VALID, non-halted,
	// non-supervised rows.
	SignalMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error)

	// Benchmark retrieves benchmark points for the given index codes within
	// [from, to]; an empty seriesNames keeps every series.
	Benchmark(ctx context.Context, indexCodes, seriesNames []string, from, to time.Time) ([]*domain.BenchmarkRow, error)

	// Calendar retrieves calendar days for the given markets within [from, to].
	Calendar(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.TradingCalendarRow, error)

	// Issues retrieves quality issues within [from, to].
	Issues(ctx context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error)
}
