package validation

import (
	"context"
	"testing"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
	"krx-market-lab/internal/storage/memory"
)

type fixture struct {
	instruments *memory.InstrumentStore
	daily       *memory.DailyMarketStore
	calendar    *memory.CalendarStore
	issues      *memory.IssueStore
	runs        *memory.RunStore
	job         *Job
}

func newFixture() *fixture {
	instruments := memory.NewInstrumentStore()
	daily := memory.NewDailyMarketStore(instruments)
	calendar := memory.NewCalendarStore()
	issues := memory.NewIssueStore()
	runStore := memory.NewRunStore()
	return &fixture{
		instruments: instruments,
		daily:       daily,
		calendar:    calendar,
		issues:      issues,
		runs:        runStore,
		job:         NewJob(daily, calendar, issues, runStore),
	}
}

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) seedInstrument(t *testing.T, externalCode string) {
	t.Helper()
	inst := &domain.Instrument{
		InstrumentID: idhash.InstrumentID("KOSPI", externalCode),
		ExternalCode: externalCode,
		MarketCode:   "KOSPI",
		Name:         externalCode,
		ListingDate:  day("2020-01-02"),
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
	if err := f.instruments.Upsert(context.Background(), inst); err != nil {
		t.Fatalf("seed instrument failed: %v", err)
	}
}

func (f *fixture) seedBar(t *testing.T, externalCode, tradeDate string, mutate func(*domain.DailyMarketRow)) {
	t.Helper()
	row := &domain.DailyMarketRow{
		InstrumentID: idhash.InstrumentID("KOSPI", externalCode),
		TradeDate:    day(tradeDate),
		Open:         100, High: 110, Low: 95, Close: 105,
		Volume:       1000,
		RecordStatus: domain.RecordStatusValid,
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	if err := f.daily.Upsert(context.Background(), row); err != nil {
		t.Fatalf("seed bar failed: %v", err)
	}
}

func (f *fixture) seedOpenDay(t *testing.T, tradeDate string) {
	t.Helper()
	row := &domain.TradingCalendarRow{
		MarketCode:  "KOSPI",
		TradeDate:   day(tradeDate),
		IsOpen:      true,
		SourceName:  "test",
		CollectedAt: time.Now().UTC(),
	}
	if err := f.calendar.Upsert(context.Background(), row); err != nil {
		t.Fatalf("seed calendar failed: %v", err)
	}
}

func TestJob_CleanRowsProduceNoIssues(t *testing.T) {
	f := newFixture()
	f.seedInstrument(t, "005930")
	f.seedBar(t, "005930", "2026-01-02", nil)
	f.seedOpenDay(t, "2026-01-02")

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.IssuesTotal != 0 || result.Errors != 0 || result.Warnings != 0 {
		t.Errorf("result = %+v, want clean", result)
	}
	if result.RowsChecked != 1 {
		t.Errorf("RowsChecked = %d, want 1", result.RowsChecked)
	}
}

func TestJob_OHLCInconsistenciesAreErrors(t *testing.T) {
	f := newFixture()
	f.seedInstrument(t, "005930")
	f.seedBar(t, "005930", "2026-01-02", func(r *domain.DailyMarketRow) {
		r.High = 90 // below max(open, close, low)
		r.Low = 98  // above min(open, close, high)
	})

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.Errors != 2 {
		t.Errorf("Errors = %d, want 2 (high and low)", result.Errors)
	}

	issues, _ := f.issues.ListByDateRange(context.Background(), day("2026-01-01"), day("2026-01-31"))
	codes := map[string]bool{}
	for _, issue := range issues {
		codes[issue.IssueCode] = true
		if issue.SourceName != SourceName {
			t.Errorf("source = %q, want %q (audit findings carry the audit source, not the row's)", issue.SourceName, SourceName)
		}
	}
	if !codes[domain.IssueOHLCHighInconsistent] || !codes[domain.IssueOHLCLowInconsistent] {
		t.Errorf("issue codes = %v", codes)
	}
}

func TestJob_HaltedRowsExemptFromOHLCChecks(t *testing.T) {
	f := newFixture()
	f.seedInstrument(t, "005930")
	f.seedBar(t, "005930", "2026-01-02", func(r *domain.DailyMarketRow) {
		r.High = 0
		r.Low = 0
		r.Open = 0
		r.IsTradeHalted = true
	})

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.Errors != 0 {
		t.Errorf("Errors = %d, want 0 for halted row", result.Errors)
	}
}

func TestJob_NegativeValuesAlwaysChecked(t *testing.T) {
	f := newFixture()
	f.seedInstrument(t, "005930")
	f.seedBar(t, "005930", "2026-01-02", func(r *domain.DailyMarketRow) {
		r.IsTradeHalted = true // exemption covers OHLC only
		r.Volume = -10
		turnover := -1.0
		r.TurnoverValue = &turnover
	})

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.Errors != 2 {
		t.Errorf("Errors = %d, want 2 (volume and turnover)", result.Errors)
	}
}

func TestJob_OpenDayWithoutRowsIsWarning(t *testing.T) {
	f := newFixture()
	f.seedOpenDay(t, "2026-01-02")

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.Warnings != 1 || result.Errors != 0 {
		t.Errorf("result = %+v, want exactly 1 warning", result)
	}

	issues, _ := f.issues.ListByDateRange(context.Background(), day("2026-01-01"), day("2026-01-31"))
	if len(issues) != 1 || issues[0].IssueCode != domain.IssueOpenDayTotalMissing {
		t.Fatalf("issues = %+v, want one OPEN_DAY_TOTAL_MISSING", issues)
	}
	if issues[0].TradeDate == nil || !issues[0].TradeDate.Equal(day("2026-01-02")) {
		t.Errorf("trade date = %v, want the open day", issues[0].TradeDate)
	}
	if issues[0].SourceName != SourceName {
		t.Errorf("source = %q, want %q", issues[0].SourceName, SourceName)
	}
}

func TestJob_OpenDayWithAnyRowPasses(t *testing.T) {
	f := newFixture()
	f.seedInstrument(t, "005930")
	f.seedOpenDay(t, "2026-01-02")
	f.seedBar(t, "005930", "2026-01-02", nil)

	result, err := f.job.ValidateRange(context.Background(), "KOSPI", day("2026-01-01"), day("2026-01-31"), nil)
	if err != nil {
		t.Fatalf("ValidateRange failed: %v", err)
	}
	if result.Warnings != 0 {
		t.Errorf("Warnings = %d, want 0", result.Warnings)
	}
}
