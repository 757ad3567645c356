// Package pipeline composes provider, collectors, calendar builder,
// validation job and run manager into one end-to-end ingestion attempt.
// Flow: instruments → daily bars → benchmark points → calendar → validation
// → run finalization.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"krx-market-lab/internal/calendar"
	"krx-market-lab/internal/collector"
	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/observability"
	"krx-market-lab/internal/provider"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/validation"
)

// DefaultSourceName stamps rows collected from the live provider.
const DefaultSourceName = "krx"

// Pipeline is one configured ingestion pipeline for a market.
type Pipeline struct {
	provider    provider.Client
	instruments *collector.InstrumentCollector
	daily       *collector.DailyMarketCollector
	benchmarks  *collector.BenchmarkCollector
	calendar    *calendar.Builder
	validation  *validation.Job
	runs        *runs.Manager
	sourceName  string
}

// Options for creating a Pipeline.
type Options struct {
	Provider    provider.Client
	Instruments *collector.InstrumentCollector
	Daily       *collector.DailyMarketCollector
	Benchmarks  *collector.BenchmarkCollector
	Calendar    *calendar.Builder
	Validation  *validation.Job
	Runs        *runs.Manager

	// SourceName defaults to DefaultSourceName.
	SourceName string
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	source := opts.SourceName
	if source == "" {
		source = DefaultSourceName
	}
	return &Pipeline{
		provider:    opts.Provider,
		instruments: opts.Instruments,
		daily:       opts.Daily,
		benchmarks:  opts.Benchmarks,
		calendar:    opts.Calendar,
		validation:  opts.Validation,
		runs:        opts.Runs,
		sourceName:  source,
	}
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID            uuid.UUID
	InstrumentsCount int
	DailyCount       int
	BenchmarkCount   int
	CalendarCount    int
	Validation       *validation.Result
}

// Run executes one ingestion attempt for a market and index over [from, to].
// Any error finalizes the run as FAILED and is returned; rows committed by
// earlier steps stay (each collector commits independently, the run row is
// the only cross-step bookkeeping).
func (p *Pipeline) Run(ctx context.Context, marketCode, indexCode string, from, to time.Time) (*RunResult, error) {
	started := time.Now()
	runID, err := p.runs.Start(ctx, runName(marketCode), p.sourceName, from, to)
	if err != nil {
		return nil, err
	}
	result := &RunResult{RunID: runID}

	instCount, err := p.collectInstruments(ctx, marketCode, to)
	if err != nil {
		return result, p.failRun(ctx, runID, started, err)
	}
	result.InstrumentsCount = instCount

	var indexDays []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dailyCount, err := p.collectDaily(ctx, marketCode, d, runID)
		if err != nil {
			return result, p.failRun(ctx, runID, started, err)
		}
		result.DailyCount += dailyCount

		benchCount, err := p.collectBenchmark(ctx, indexCode, d, runID)
		if err != nil {
			return result, p.failRun(ctx, runID, started, err)
		}
		result.BenchmarkCount += benchCount
		if benchCount > 0 {
			indexDays = append(indexDays, d)
		}
	}

	return p.finalize(ctx, result, marketCode, from, to, indexDays, runID, started)
}

// PreparedRows is a pre-normalized batch for fixture-driven runs.
type PreparedRows struct {
	Instruments []normalize.InstrumentRow
	Daily       []normalize.DailyMarketInput
	Benchmarks  []normalize.BenchmarkInput
}

// RunPrepared executes one ingestion attempt over already-normalized rows,
// bypassing the provider. Index-open days are derived from the benchmark
// rows that actually landed, grouped per trade date.
func (p *Pipeline) RunPrepared(ctx context.Context, marketCode string, from, to time.Time, prepared PreparedRows) (*RunResult, error) {
	started := time.Now()
	runID, err := p.runs.Start(ctx, runName(marketCode), p.sourceName, from, to)
	if err != nil {
		return nil, err
	}
	result := &RunResult{RunID: runID}

	instCount, err := p.instruments.Collect(ctx, prepared.Instruments, p.sourceName)
	if err != nil {
		return result, p.failRun(ctx, runID, started, err)
	}
	result.InstrumentsCount = instCount

	dailyCount, err := p.daily.Collect(ctx, prepared.Daily, p.sourceName, &runID)
	if err != nil {
		return result, p.failRun(ctx, runID, started, err)
	}
	result.DailyCount = dailyCount

	var indexDays []time.Time
	for _, batch := range groupByDate(prepared.Benchmarks) {
		count, err := p.benchmarks.Collect(ctx, batch.rows, p.sourceName, &runID)
		if err != nil {
			return result, p.failRun(ctx, runID, started, err)
		}
		result.BenchmarkCount += count
		if count > 0 {
			indexDays = append(indexDays, batch.date)
		}
	}

	return p.finalize(ctx, result, marketCode, from, to, indexDays, runID, started)
}

func (p *Pipeline) finalize(ctx context.Context, result *RunResult, marketCode string, from, to time.Time, indexDays []time.Time, runID uuid.UUID, started time.Time) (*RunResult, error) {
	calCount, err := p.calendar.BuildFromIndexDays(ctx, marketCode, from, to, indexDays, p.sourceName, &runID)
	if err != nil {
		return result, p.failRun(ctx, runID, started, err)
	}
	result.CalendarCount = calCount

	audit, err := p.validation.ValidateRange(ctx, marketCode, from, to, &runID)
	if err != nil {
		return result, p.failRun(ctx, runID, started, err)
	}
	result.Validation = audit

	success := result.InstrumentsCount + result.DailyCount + result.BenchmarkCount + result.CalendarCount
	if err := p.runs.Finish(ctx, runID, success, audit.Errors, audit.Warnings); err != nil {
		return result, err
	}

	observability.RecordRowsCollected(domain.DatasetInstruments, result.InstrumentsCount)
	observability.RecordRowsCollected(domain.DatasetDailyMarket, result.DailyCount)
	observability.RecordRowsCollected(domain.DatasetBenchmark, result.BenchmarkCount)

	// Mirrors the status resolution in runs.Manager.Finish.
	status := domain.RunStatusSuccess
	switch {
	case audit.Errors > 0:
		status = domain.RunStatusFailed
	case audit.Warnings > 0:
		status = domain.RunStatusPartial
	}
	observability.RecordRun(status, time.Since(started).Seconds())
	if status == domain.RunStatusSuccess {
		observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
	return result, nil
}

func (p *Pipeline) collectInstruments(ctx context.Context, marketCode string, baseDate time.Time) (int, error) {
	payload, err := p.provider.Instruments(ctx, marketCode, baseDate)
	if err != nil {
		return 0, fmt.Errorf("fetch instruments %s: %w", marketCode, err)
	}
	rows := normalize.Instruments(normalize.ExtractRows(payload), marketCode)
	return p.instruments.Collect(ctx, rows, p.sourceName)
}

func (p *Pipeline) collectDaily(ctx context.Context, marketCode string, tradeDate time.Time, runID uuid.UUID) (int, error) {
	payload, err := p.provider.DailyMarket(ctx, marketCode, tradeDate)
	if err != nil {
		return 0, fmt.Errorf("fetch daily %s/%s: %w", marketCode, tradeDate.Format("2006-01-02"), err)
	}
	inputs := normalize.DailyMarket(normalize.ExtractRows(payload), marketCode, tradeDate)
	return p.daily.Collect(ctx, inputs, p.sourceName, &runID)
}

func (p *Pipeline) collectBenchmark(ctx context.Context, indexCode string, tradeDate time.Time, runID uuid.UUID) (int, error) {
	payload, err := p.provider.IndexDaily(ctx, indexCode, tradeDate)
	if err != nil {
		return 0, fmt.Errorf("fetch index %s/%s: %w", indexCode, tradeDate.Format("2006-01-02"), err)
	}
	inputs := normalize.Benchmark(normalize.ExtractRows(payload), indexCode, tradeDate)
	return p.benchmarks.Collect(ctx, inputs, p.sourceName, &runID)
}

// failRun finalizes the run as FAILED and returns the causing error. A
// failure of the finalization itself is only logged: the original error is
// the one the caller needs.
func (p *Pipeline) failRun(ctx context.Context, runID uuid.UUID, started time.Time, cause error) error {
	if err := p.runs.Fail(ctx, runID, 1); err != nil {
		log.Errorf("finalizing failed run %s: %v", runID, err)
	}
	observability.RecordRun(domain.RunStatusFailed, time.Since(started).Seconds())
	return cause
}

func runName(marketCode string) string {
	return "phase1-collect-" + marketCode
}

type dateBatch struct {
	date time.Time
	rows []normalize.BenchmarkInput
}

// groupByDate splits benchmark inputs into per-date batches, preserving the
// window order. Rows with unparsable dates go into a zero-date batch so the
// collector can reject them individually.
func groupByDate(rows []normalize.BenchmarkInput) []dateBatch {
	byDate := make(map[time.Time][]normalize.BenchmarkInput)
	var order []time.Time
	for _, row := range rows {
		d, err := time.Parse("2006-01-02", row.TradeDate)
		if err != nil {
			d = time.Time{}
		}
		if _, seen := byDate[d]; !seen {
			order = append(order, d)
		}
		byDate[d] = append(byDate[d], row)
	}

	batches := make([]dateBatch, 0, len(order))
	for _, d := range order {
		batches = append(batches, dateBatch{date: d, rows: byDate[d]})
	}
	return batches
}
