package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage"
)

const placeholderCodeMax = 20

// DailyMarketCollector upserts normalized daily OHLCV bars.
type DailyMarketCollector struct {
	daily       storage.DailyMarketStore
	instruments storage.InstrumentStore
	issues      storage.IssueStore
	runs        storage.RunStore
}

// NewDailyMarketCollector creates a daily market collector.
func NewDailyMarketCollector(daily storage.DailyMarketStore, instruments storage.InstrumentStore, issues storage.IssueStore, runStore storage.RunStore) *DailyMarketCollector {
	return &DailyMarketCollector{daily: daily, instruments: instruments, issues: issues, runs: runStore}
}

// Collect validates and upserts daily bars, returning the upserted count.
// A row failing coercion, OHLC consistency (halted rows exempt) or the
// non-negativity checks is dropped with an INVALID_DAILY_MARKET_ROW error
// issue. Instruments referenced by a bar but absent from the master get a
// minimal placeholder row first, so daily data arriving before the
// instrument master still lands.
func (c *DailyMarketCollector) Collect(ctx context.Context, inputRows []normalize.DailyMarketInput, source string, runID *uuid.UUID) (int, error) {
	now := time.Now().UTC()
	resolvedRun := runs.ResolveExisting(ctx, c.runs, runID)

	var issues []*domain.DataQualityIssue
	upserted := 0

	for _, row := range inputRows {
		instrumentID, err := uuid.Parse(row.InstrumentID)
		if err != nil {
			continue
		}
		tradeDate, err := parseISODate(row.TradeDate)
		if err != nil {
			issues = append(issues, c.rejectIssue(source, now, instrumentID, nil, resolvedRun, fmt.Sprintf("trade_date: %v", err)))
			continue
		}

		if reason := checkDailyRow(&row); reason != "" {
			issues = append(issues, c.rejectIssue(source, now, instrumentID, &tradeDate, resolvedRun, reason))
			continue
		}

		if err := c.ensureInstrument(ctx, instrumentID, &row, tradeDate, source, now); err != nil {
			return upserted, err
		}

		bar := &domain.DailyMarketRow{
			InstrumentID:       instrumentID,
			TradeDate:          tradeDate,
			Open:               row.Open,
			High:               row.High,
			Low:                row.Low,
			Close:              row.Close,
			Volume:             row.Volume,
			TurnoverValue:      row.TurnoverValue,
			MarketValue:        row.MarketValue,
			PriceChange:        row.PriceChange,
			ChangeRate:         row.ChangeRate,
			ListedShares:       row.ListedShares,
			IsTradeHalted:      row.IsTradeHalted,
			IsUnderSupervision: row.IsUnderSupervision,
			RecordStatus:       recordStatusOrValid(row.RecordStatus),
			SourceName:         source,
			CollectedAt:        now,
			RunID:              resolvedRun,
		}
		if err := c.daily.Upsert(ctx, bar); err != nil {
			return upserted, fmt.Errorf("upsert daily bar %s/%s: %w", row.ExternalCode, row.TradeDate, err)
		}
		upserted++
	}

	if err := insertIssues(ctx, c.issues, issues); err != nil {
		return upserted, err
	}
	return upserted, nil
}

// checkDailyRow returns the rejection reason for an invalid row, or "".
// OHLC consistency is skipped for halted rows: their degenerate bars are
// synthesized by the normalizer.
func checkDailyRow(row *normalize.DailyMarketInput) string {
	if !row.IsTradeHalted {
		if row.High < max(row.Open, row.Close, row.Low) {
			return "high is inconsistent"
		}
		if row.Low > min(row.Open, row.Close, row.High) {
			return "low is inconsistent"
		}
	}
	if row.Volume < 0 {
		return "volume must be non-negative"
	}
	if row.TurnoverValue != nil && *row.TurnoverValue < 0 {
		return "turnover_value must be non-negative"
	}
	if row.MarketValue != nil && *row.MarketValue < 0 {
		return "market_value must be non-negative"
	}
	return ""
}

func (c *DailyMarketCollector) rejectIssue(source string, now time.Time, instrumentID uuid.UUID, tradeDate *time.Time, runID *uuid.UUID, detail string) *domain.DataQualityIssue {
	return domain.NewIssue(
		domain.DatasetDailyMarket, domain.IssueInvalidDailyMarketRow, domain.SeverityError, source, now,
		domain.IssueOpts{InstrumentID: &instrumentID, TradeDate: tradeDate, RunID: runID, Detail: detail},
	)
}

// ensureInstrument backfills a minimal placeholder master row when a daily
// bar references an instrument that has not been collected yet.
func (c *DailyMarketCollector) ensureInstrument(ctx context.Context, instrumentID uuid.UUID, row *normalize.DailyMarketInput, tradeDate time.Time, source string, now time.Time) error {
	exists, err := c.instruments.Exists(ctx, instrumentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check instrument %s: %w", instrumentID, err)
	}
	if exists {
		return nil
	}

	code := row.ExternalCode
	if len(code) > placeholderCodeMax {
		code = code[:placeholderCodeMax]
	}
	marketCode := row.MarketCode
	if marketCode == "" {
		marketCode = "UNKNOWN"
	}

	placeholder := &domain.Instrument{
		InstrumentID: instrumentID,
		ExternalCode: code,
		MarketCode:   marketCode,
		Name:         code,
		ListingDate:  tradeDate,
		SourceName:   source,
		CollectedAt:  now,
	}
	if err := c.instruments.Upsert(ctx, placeholder); err != nil {
		return fmt.Errorf("backfill instrument %s: %w", instrumentID, err)
	}
	return nil
}

func recordStatusOrValid(status string) string {
	switch status {
	case domain.RecordStatusValid, domain.RecordStatusInvalid, domain.RecordStatusMissing:
		return status
	default:
		return domain.RecordStatusValid
	}
}
