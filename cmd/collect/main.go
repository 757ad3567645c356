// Command collect runs one ingestion attempt for a market window against
// PostgreSQL: instrument master, daily bars, benchmark points, inferred
// calendar and the validation audit.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"krx-market-lab/internal/calendar"
	"krx-market-lab/internal/collector"
	"krx-market-lab/internal/config"
	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/observability"
	"krx-market-lab/internal/pipeline"
	"krx-market-lab/internal/provider"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage/migrations"
	pgstore "krx-market-lab/internal/storage/postgres"
	"krx-market-lab/internal/validation"
)

const isoDate = "2006-01-02"

func main() {
	var (
		market      string
		index       string
		from        string
		to          string
		delistings  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect and validate one market window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				startMetricsServer(metricsAddr)
			}
			return runCollect(cmd.Context(), market, index, from, to, delistings)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&market, "market", "KOSPI", "market code (KOSPI, KOSDAQ, KONEX)")
	cmd.Flags().StringVar(&index, "index", "KOSPI", "benchmark index code for the market")
	cmd.Flags().StringVar(&from, "from", "", "window start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "window end, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&delistings, "delistings", "", "CSV delisting feed to apply after collection (optional)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (empty disables)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Errorf("collect failed: %v", err)
		os.Exit(1)
	}
}

func runCollect(ctx context.Context, market, index, fromStr, toStr, delistingsPath string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := settings.Validate("database", "provider"); err != nil {
		return err
	}
	applyLogLevel(settings.LogLevel)

	from, err := time.Parse(isoDate, fromStr)
	if err != nil {
		return fmt.Errorf("parse --from: %w", err)
	}
	to, err := time.Parse(isoDate, toStr)
	if err != nil {
		return fmt.Errorf("parse --to: %w", err)
	}

	pool, err := pgstore.NewPool(ctx, settings.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	instruments := pgstore.NewInstrumentStore(pool)
	daily := pgstore.NewDailyMarketStore(pool)
	benchmarks := pgstore.NewBenchmarkStore(pool)
	calendarStore := pgstore.NewCalendarStore(pool)
	issues := pgstore.NewIssueStore(pool)
	runStore := pgstore.NewRunStore(pool)

	client := provider.NewHTTPClient(settings.KRX.AuthKey,
		provider.WithBaseURL(settings.KRX.BaseURL),
		provider.WithTimeout(settings.KRX.Timeout),
		provider.WithMaxRetries(settings.KRX.MaxRetries),
		provider.WithDailyLimit(int(settings.KRX.DailyLimit)),
	)

	p := pipeline.New(pipeline.Options{
		Provider:    client,
		Instruments: collector.NewInstrumentCollector(instruments, issues),
		Daily:       collector.NewDailyMarketCollector(daily, instruments, issues, runStore),
		Benchmarks:  collector.NewBenchmarkCollector(benchmarks, issues, runStore, nil),
		Calendar:    calendar.NewBuilder(calendarStore, runStore),
		Validation:  validation.NewJob(daily, calendarStore, issues, runStore),
		Runs:        runs.NewManager(runStore),
	})

	result, err := p.Run(ctx, market, index, from, to)
	if err != nil {
		return err
	}

	log.Infof("run %s finished: instruments=%d daily=%d benchmark=%d calendar=%d",
		result.RunID, result.InstrumentsCount, result.DailyCount,
		result.BenchmarkCount, result.CalendarCount)
	if result.Validation != nil {
		log.Infof("validation: rows=%d errors=%d warnings=%d",
			result.Validation.RowsChecked, result.Validation.Errors, result.Validation.Warnings)
	}

	if delistingsPath != "" {
		notices, err := readDelistingNotices(delistingsPath)
		if err != nil {
			return fmt.Errorf("read delisting feed: %w", err)
		}
		dc := collector.NewDelistingCollector(instruments, pgstore.NewDelistingStore(pool), issues, runStore)
		applied, err := dc.Apply(ctx, notices, pipeline.DefaultSourceName, &result.RunID)
		if err != nil {
			return err
		}
		log.Infof("delistings: matched=%d updated=%d unchanged=%d unmatched=%d invalid=%d",
			applied.Matched, applied.Updated, applied.Unchanged, applied.Unmatched, applied.Invalid)
	}
	return nil
}

// readDelistingNotices parses a delisting feed CSV with a header line:
// market_code,external_code,delisting_date,reason,note.
func readDelistingNotices(path string) ([]domain.DelistingNotice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	notices := make([]domain.DelistingNotice, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		notice := domain.DelistingNotice{
			MarketCode:   strings.ToUpper(strings.TrimSpace(record[0])),
			ExternalCode: strings.TrimSpace(record[1]),
		}
		// A bad date stays zero and is rejected by the collector, which
		// records the issue instead of dropping the row silently here.
		if d, err := time.Parse(isoDate, strings.TrimSpace(record[2])); err == nil {
			notice.DelistingDate = d
		}
		if len(record) > 3 && record[3] != "" {
			reason := record[3]
			notice.Reason = &reason
		}
		if len(record) > 4 && record[4] != "" {
			note := record[4]
			notice.Note = &note
		}
		notices = append(notices, notice)
	}
	return notices, nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
	log.Infof("metrics server listening on %s", addr)
}

func applyLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, keeping info", level)
		return
	}
	log.SetLevel(parsed)
}
