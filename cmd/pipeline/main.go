// Package main provides the end-to-end demo pipeline entry point.
// Executes: collection → calendar → validation → export, entirely on
// in-memory stores and fixture payloads. No external services required.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krx-market-lab/internal/calendar"
	"krx-market-lab/internal/collector"
	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/export"
	"krx-market-lab/internal/pipeline"
	"krx-market-lab/internal/provider/stub"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage/memory"
	"krx-market-lab/internal/validation"
)

func main() {
	market := flag.String("market", "KOSPI", "market code for the demo window")
	index := flag.String("index", "KOSPI", "benchmark index code")
	verbose := flag.Bool("verbose", false, "print individual data-quality issues")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	stores := createMemoryStores()

	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	client := seedFixtures(*market, *index, from, to)

	fmt.Println("=== Collection ===")
	p := pipeline.New(pipeline.Options{
		Provider:    client,
		Instruments: collector.NewInstrumentCollector(stores.instruments, stores.issues),
		Daily:       collector.NewDailyMarketCollector(stores.daily, stores.instruments, stores.issues, stores.runs),
		Benchmarks:  collector.NewBenchmarkCollector(stores.benchmarks, stores.issues, stores.runs, nil),
		Calendar:    calendar.NewBuilder(stores.calendar, stores.runs),
		Validation:  validation.NewJob(stores.daily, stores.calendar, stores.issues, stores.runs),
		Runs:        runs.NewManager(stores.runs),
	})

	result, err := p.Run(ctx, *market, *index, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run %s completed:\n", result.RunID)
	fmt.Printf("  Instruments: %d\n", result.InstrumentsCount)
	fmt.Printf("  Daily bars: %d\n", result.DailyCount)
	fmt.Printf("  Benchmark points: %d\n", result.BenchmarkCount)
	fmt.Printf("  Calendar days: %d\n", result.CalendarCount)
	if result.Validation != nil {
		fmt.Printf("  Validation: %d rows, %d errors, %d warnings\n",
			result.Validation.RowsChecked, result.Validation.Errors, result.Validation.Warnings)
	}

	if *verbose {
		issues, err := stores.issues.ListByRunID(ctx, result.RunID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List issues error: %v\n", err)
			os.Exit(1)
		}
		for _, issue := range issues {
			fmt.Printf("    [%s] %s: %s\n", issue.Severity, issue.IssueCode, issue.IssueDetail)
		}
	}

	fmt.Println("\n=== Export ===")
	service := export.NewService(
		memory.NewExportJobStore(),
		memory.NewDatasetStore(stores.instruments, stores.daily, stores.benchmarks, stores.calendar, stores.issues),
		&printSink{},
	)

	job, err := service.CreateJob(ctx, domain.ExportRequest{
		MarketCodes:   []string{*market},
		IndexCodes:    []string{*index},
		DateFrom:      from.Format("2006-01-02"),
		DateTo:        to.Format("2006-01-02"),
		IncludeIssues: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Create export job error: %v\n", err)
		os.Exit(1)
	}
	if err := service.RunJob(ctx, job.JobID); err != nil {
		fmt.Fprintf(os.Stderr, "Export error: %v\n", err)
		os.Exit(1)
	}
	job, err = service.GetJob(ctx, job.JobID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Get export job error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Export job %s %s:\n", job.JobID, job.Status)
	for _, dataset := range job.Datasets {
		fmt.Printf("  %s: %d rows\n", dataset, job.RowCounts[dataset])
	}
}

type memoryStores struct {
	instruments *memory.InstrumentStore
	daily       *memory.DailyMarketStore
	benchmarks  *memory.BenchmarkStore
	calendar    *memory.CalendarStore
	issues      *memory.IssueStore
	runs        *memory.RunStore
}

func createMemoryStores() *memoryStores {
	instruments := memory.NewInstrumentStore()
	return &memoryStores{
		instruments: instruments,
		daily:       memory.NewDailyMarketStore(instruments),
		benchmarks:  memory.NewBenchmarkStore(),
		calendar:    memory.NewCalendarStore(),
		issues:      memory.NewIssueStore(),
		runs:        memory.NewRunStore(),
	}
}

// seedFixtures builds a five-day window with three trading days (Mon, Wed,
// Fri) and two instruments. The last trading day carries index data but no
// daily bars, so the validation stage has an outage to flag.
func seedFixtures(market, index string, from, to time.Time) *stub.Client {
	client := stub.NewClient()

	client.SetInstruments(market, to, stub.Rows(
		map[string]any{
			"ISU_SRT_CD": "005930", "ISU_NM": "삼성전자",
			"LIST_DD": "1975/06/11", "LIST_SHRS": "5,969,782,550", "PARVAL": "100",
		},
		map[string]any{
			"ISU_SRT_CD": "000660", "ISU_NM": "SK하이닉스",
			"LIST_DD": "1996/12/26", "LIST_SHRS": "728,002,365", "PARVAL": "5,000",
		},
	))

	tradingDays := []time.Time{from, from.AddDate(0, 0, 2), from.AddDate(0, 0, 4)}
	for i, day := range tradingDays {
		client.SetIndexDaily(index, day, stub.Rows(map[string]any{
			"IDX_NM":     index,
			"OPNPRC_IDX": "2,500.10", "HGPRC_IDX": "2,520.00",
			"LWPRC_IDX": "2,490.00", "CLSPRC_IDX": "2,511.30",
		}))

		// No bars at all for the last trading day: a total outage.
		if i == len(tradingDays)-1 {
			continue
		}
		client.SetDailyMarket(market, day, stub.Rows(
			map[string]any{
				"ISU_SRT_CD": "005930", "ISU_NM": "삼성전자",
				"TDD_OPNPRC": "70,000", "TDD_HGPRC": "71,500",
				"TDD_LWPRC": "69,800", "TDD_CLSPRC": "71,000",
				"ACC_TRDVOL": "12,345,678",
			},
			map[string]any{
				"ISU_SRT_CD": "000660", "ISU_NM": "SK하이닉스",
				"TDD_OPNPRC": "180,000", "TDD_HGPRC": "184,000",
				"TDD_LWPRC": "179,500", "TDD_CLSPRC": "183,200",
				"ACC_TRDVOL": "3,456,789",
			},
		))
	}
	return client
}

// printSink implements export.Sink by printing row counts instead of
// writing to ClickHouse.
type printSink struct{}

var _ export.Sink = (*printSink)(nil)

func (*printSink) WriteCoreMarket(_ context.Context, rows []*domain.CoreMarketRecord) error {
	fmt.Printf("  sink <- core_market: %d rows\n", len(rows))
	return nil
}

func (*printSink) WriteSignalMarket(_ context.Context, rows []*domain.CoreMarketRecord) error {
	fmt.Printf("  sink <- signal_market: %d rows\n", len(rows))
	return nil
}

func (*printSink) WriteBenchmark(_ context.Context, rows []*domain.BenchmarkRow) error {
	fmt.Printf("  sink <- benchmark: %d rows\n", len(rows))
	return nil
}

func (*printSink) WriteCalendar(_ context.Context, rows []*domain.TradingCalendarRow) error {
	fmt.Printf("  sink <- calendar: %d rows\n", len(rows))
	return nil
}

func (*printSink) WriteIssues(_ context.Context, rows []*domain.DataQualityIssue) error {
	fmt.Printf("  sink <- issues: %d rows\n", len(rows))
	return nil
}
