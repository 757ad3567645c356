package collector

import (
	"context"
	"testing"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/storage/memory"
)

type fixture struct {
	instruments *memory.InstrumentStore
	daily       *memory.DailyMarketStore
	benchmarks  *memory.BenchmarkStore
	snapshots   *memory.DelistingStore
	issues      *memory.IssueStore
	runs        *memory.RunStore
}

func newFixture() *fixture {
	instruments := memory.NewInstrumentStore()
	return &fixture{
		instruments: instruments,
		daily:       memory.NewDailyMarketStore(instruments),
		benchmarks:  memory.NewBenchmarkStore(),
		snapshots:   memory.NewDelistingStore(),
		issues:      memory.NewIssueStore(),
		runs:        memory.NewRunStore(),
	}
}

func (f *fixture) allIssues(t *testing.T) []*domain.DataQualityIssue {
	t.Helper()
	issues, err := f.issues.ListByDateRange(context.Background(), day("2000-01-01"), day("2100-01-01"))
	if err != nil {
		t.Fatalf("listing issues failed: %v", err)
	}
	return issues
}

func (f *fixture) issuesByCode(t *testing.T, code string) []*domain.DataQualityIssue {
	t.Helper()
	var matched []*domain.DataQualityIssue
	for _, issue := range f.allIssues(t) {
		if issue.IssueCode == code {
			matched = append(matched, issue)
		}
	}
	return matched
}

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func dailyInput(marketCode, externalCode, tradeDate string) normalize.DailyMarketInput {
	return normalize.DailyMarketInput{
		InstrumentID: idhash.InstrumentID(marketCode, externalCode).String(),
		ExternalCode: externalCode,
		MarketCode:   marketCode,
		TradeDate:    tradeDate,
		Open:         100, High: 110, Low: 95, Close: 105,
		Volume:       1000,
		RecordStatus: domain.RecordStatusValid,
	}
}

func benchmarkInput(indexCode, indexName, tradeDate string) normalize.BenchmarkInput {
	open, high, low, closePrice := 2650.0, 2671.0, 2640.0, 2669.0
	return normalize.BenchmarkInput{
		IndexCode:    indexCode,
		IndexName:    indexName,
		TradeDate:    tradeDate,
		Open:         &open,
		High:         &high,
		Low:          &low,
		Close:        &closePrice,
		RecordStatus: domain.BenchmarkStatusValid,
	}
}
