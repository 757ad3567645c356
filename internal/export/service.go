// Package export creates and runs columnar export jobs: curated dataset
// projections read from relational storage and bulk-written to an analytic
// sink. Job lifecycle lives next to the source data so an exporter crash
// leaves an auditable FAILED row behind.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/observability"
	"krx-market-lab/internal/storage"
)

// Dataset names, in export order.
const (
	DatasetCoreMarket   = "core_market"
	DatasetSignalMarket = "signal_market"
	DatasetBenchmark    = "benchmark"
	DatasetCalendar     = "calendar"
	DatasetIssues       = "issues"
)

// Error codes recorded on FAILED jobs.
const (
	ErrCodeDatasetRead = "DATASET_READ_FAILED"
	ErrCodeSinkWrite   = "SINK_WRITE_FAILED"
	ErrCodeJobState    = "JOB_STATE_INVALID"
)

const isoDate = "2006-01-02"

var allowedMarkets = map[string]bool{
	"KOSPI":  true,
	"KOSDAQ": true,
	"KONEX":  true,
}

// Sink receives curated dataset rows. Implementations batch internally;
// a call covers one dataset of one job.
type Sink interface {
	WriteCoreMarket(ctx context.Context, rows []*domain.CoreMarketRecord) error
	WriteSignalMarket(ctx context.Context, rows []*domain.CoreMarketRecord) error
	WriteBenchmark(ctx context.Context, rows []*domain.BenchmarkRow) error
	WriteCalendar(ctx context.Context, rows []*domain.TradingCalendarRow) error
	WriteIssues(ctx context.Context, rows []*domain.DataQualityIssue) error
}

// Service creates export jobs and runs them to completion.
type Service struct {
	jobs     storage.ExportJobStore
	datasets storage.DatasetStore
	sink     Sink
}

// NewService creates an export service.
func NewService(jobs storage.ExportJobStore, datasets storage.DatasetStore, sink Sink) *Service {
	return &Service{jobs: jobs, datasets: datasets, sink: sink}
}

// CreateJob validates the request and persists a PENDING job. The dataset
// list is derived from the request: core and signal market plus calendar
// always, benchmark when index codes are given, issues on request.
func (s *Service) CreateJob(ctx context.Context, req domain.ExportRequest) (*domain.ExportJob, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	job := &domain.ExportJob{
		JobID:       uuid.New(),
		Status:      domain.ExportStatusPending,
		SubmittedAt: time.Now().UTC(),
		Datasets:    datasetsFor(&req),
		Request:     req,
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("insert export job: %w", err)
	}
	log.Infof("export job %s created: markets=%v window=%s..%s datasets=%v",
		job.JobID, req.MarketCodes, req.DateFrom, req.DateTo, job.Datasets)
	return job, nil
}

// GetJob retrieves a job by id.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ExportJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// RunJob executes a PENDING job: reads each dataset, writes it to the sink,
// and finalizes the job SUCCEEDED with per-dataset row counts, or FAILED
// with an error code and message. The returned error mirrors the failure.
func (s *Service) RunJob(ctx context.Context, jobID uuid.UUID) error {
	started := time.Now()
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := s.jobs.MarkRunning(ctx, jobID, time.Now().UTC()); err != nil {
		return s.fail(ctx, jobID, started, ErrCodeJobState, err)
	}

	// Dates were validated at job creation.
	from, _ := time.Parse(isoDate, job.Request.DateFrom)
	to, _ := time.Parse(isoDate, job.Request.DateTo)

	rowCounts := make(map[string]int, len(job.Datasets))
	for i, dataset := range job.Datasets {
		count, err := s.exportDataset(ctx, &job.Request, dataset, from, to)
		if err != nil {
			return s.fail(ctx, jobID, started, errCodeFor(err), err)
		}
		rowCounts[dataset] = count
		observability.RecordRowsExported(dataset, count)

		progress := (i + 1) * 100 / len(job.Datasets)
		if err := s.jobs.SetProgress(ctx, jobID, progress); err != nil {
			return s.fail(ctx, jobID, started, ErrCodeJobState, err)
		}
		log.Infof("export job %s: %s done, %d rows (%d%%)", jobID, dataset, count, progress)
	}

	if err := s.jobs.MarkSucceeded(ctx, jobID, time.Now().UTC(), rowCounts); err != nil {
		return err
	}
	observability.RecordExportJob(domain.ExportStatusSucceeded, time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulExport.SetToCurrentTime()
	return nil
}

func (s *Service) exportDataset(ctx context.Context, req *domain.ExportRequest, dataset string, from, to time.Time) (int, error) {
	switch dataset {
	case DatasetCoreMarket:
		rows, err := s.datasets.CoreMarket(ctx, req.MarketCodes, from, to)
		if err != nil {
			return 0, &readError{dataset: dataset, err: err}
		}
		if err := s.sink.WriteCoreMarket(ctx, rows); err != nil {
			return 0, &writeError{dataset: dataset, err: err}
		}
		return len(rows), nil
	case DatasetSignalMarket:
		rows, err := s.datasets.SignalMarket(ctx, req.MarketCodes, from, to)
		if err != nil {
			return 0, &readError{dataset: dataset, err: err}
		}
		if err := s.sink.WriteSignalMarket(ctx, rows); err != nil {
			return 0, &writeError{dataset: dataset, err: err}
		}
		return len(rows), nil
	case DatasetBenchmark:
		series := req.SeriesNames
		if len(series) == 0 {
			// The feed uses the index code as the canonical series name.
			series = req.IndexCodes
		}
		rows, err := s.datasets.Benchmark(ctx, req.IndexCodes, series, from, to)
		if err != nil {
			return 0, &readError{dataset: dataset, err: err}
		}
		if err := s.sink.WriteBenchmark(ctx, rows); err != nil {
			return 0, &writeError{dataset: dataset, err: err}
		}
		return len(rows), nil
	case DatasetCalendar:
		rows, err := s.datasets.Calendar(ctx, req.MarketCodes, from, to)
		if err != nil {
			return 0, &readError{dataset: dataset, err: err}
		}
		if err := s.sink.WriteCalendar(ctx, rows); err != nil {
			return 0, &writeError{dataset: dataset, err: err}
		}
		return len(rows), nil
	case DatasetIssues:
		rows, err := s.datasets.Issues(ctx, from, to)
		if err != nil {
			return 0, &readError{dataset: dataset, err: err}
		}
		if err := s.sink.WriteIssues(ctx, rows); err != nil {
			return 0, &writeError{dataset: dataset, err: err}
		}
		return len(rows), nil
	default:
		return 0, fmt.Errorf("unknown dataset %q", dataset)
	}
}

func (s *Service) fail(ctx context.Context, jobID uuid.UUID, started time.Time, code string, cause error) error {
	if err := s.jobs.MarkFailed(ctx, jobID, time.Now().UTC(), code, cause.Error()); err != nil {
		log.Errorf("finalizing failed export job %s: %v", jobID, err)
	}
	observability.RecordExportJob(domain.ExportStatusFailed, time.Since(started).Seconds())
	return cause
}

type readError struct {
	dataset string
	err     error
}

func (e *readError) Error() string { return fmt.Sprintf("read %s: %v", e.dataset, e.err) }
func (e *readError) Unwrap() error { return e.err }

type writeError struct {
	dataset string
	err     error
}

func (e *writeError) Error() string { return fmt.Sprintf("write %s: %v", e.dataset, e.err) }
func (e *writeError) Unwrap() error { return e.err }

func errCodeFor(err error) string {
	switch err.(type) {
	case *writeError:
		return ErrCodeSinkWrite
	default:
		return ErrCodeDatasetRead
	}
}

func validateRequest(req *domain.ExportRequest) error {
	var problems []string

	if len(req.MarketCodes) == 0 {
		problems = append(problems, "at least one market code is required")
	}
	for i, market := range req.MarketCodes {
		canonical := strings.ToUpper(strings.TrimSpace(market))
		if !allowedMarkets[canonical] {
			problems = append(problems, fmt.Sprintf("unsupported market code %q", market))
			continue
		}
		req.MarketCodes[i] = canonical
	}
	for i, index := range req.IndexCodes {
		req.IndexCodes[i] = strings.ToUpper(strings.TrimSpace(index))
	}

	from, errFrom := time.Parse(isoDate, req.DateFrom)
	if errFrom != nil {
		problems = append(problems, fmt.Sprintf("date_from %q is not a valid date", req.DateFrom))
	}
	to, errTo := time.Parse(isoDate, req.DateTo)
	if errTo != nil {
		problems = append(problems, fmt.Sprintf("date_to %q is not a valid date", req.DateTo))
	}
	if errFrom == nil && errTo == nil && to.Before(from) {
		problems = append(problems, "date_to precedes date_from")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid export request: %s", strings.Join(problems, "; "))
	}
	return nil
}

func datasetsFor(req *domain.ExportRequest) []string {
	datasets := []string{DatasetCoreMarket, DatasetSignalMarket}
	if len(req.IndexCodes) > 0 {
		datasets = append(datasets, DatasetBenchmark)
	}
	datasets = append(datasets, DatasetCalendar)
	if req.IncludeIssues {
		datasets = append(datasets, DatasetIssues)
	}
	return datasets
}
