package clickhouse

import (
	"context"
	"fmt"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/export"
)

// ExportSink implements export.Sink over ClickHouse batch inserts. Each
// Write call covers one dataset of one job; the ReplacingMergeTree tables
// absorb re-exports of the same window.
type ExportSink struct {
	conn *Conn
}

// NewExportSink creates a new ExportSink.
func NewExportSink(conn *Conn) *ExportSink {
	return &ExportSink{conn: conn}
}

// Compile-time interface check.
var _ export.Sink = (*ExportSink)(nil)

// WriteCoreMarket bulk-inserts core market records.
func (s *ExportSink) WriteCoreMarket(ctx context.Context, rows []*domain.CoreMarketRecord) error {
	return s.writeMarket(ctx, "export_core_market", rows)
}

// WriteSignalMarket bulk-inserts signal market records.
func (s *ExportSink) WriteSignalMarket(ctx context.Context, rows []*domain.CoreMarketRecord) error {
	return s.writeMarket(ctx, "export_signal_market", rows)
}

func (s *ExportSink) writeMarket(ctx context.Context, table string, rows []*domain.CoreMarketRecord) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			instrument_id, external_code, market_code, instrument_name,
			listing_date, delisting_date, trade_date,
			open, high, low, close, volume,
			turnover_value, market_value, price_change, change_rate,
			listed_shares, is_trade_halted, is_under_supervision, record_status
		)
	`, table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range rows {
		err = batch.Append(
			rec.InstrumentID, rec.ExternalCode, rec.MarketCode, rec.InstrumentName,
			rec.ListingDate, rec.DelistingDate, rec.TradeDate,
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.TurnoverValue, rec.MarketValue, rec.PriceChange, rec.ChangeRate,
			rec.ListedShares, rec.IsTradeHalted, rec.IsUnderSupervision, rec.RecordStatus,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// WriteBenchmark bulk-inserts benchmark points.
func (s *ExportSink) WriteBenchmark(ctx context.Context, rows []*domain.BenchmarkRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO export_benchmark (
			index_code, index_name, trade_date, open, high, low, close,
			volume, turnover_value, market_cap, price_change, change_rate,
			record_status
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, point := range rows {
		err = batch.Append(
			point.IndexCode, point.IndexName, point.TradeDate,
			point.Open, point.High, point.Low, point.Close,
			point.Volume, point.TurnoverValue, point.MarketCap,
			point.PriceChange, point.ChangeRate, point.RecordStatus,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// WriteCalendar bulk-inserts calendar days.
func (s *ExportSink) WriteCalendar(ctx context.Context, rows []*domain.TradingCalendarRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO export_calendar (market_code, trade_date, is_open, holiday_name)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, day := range rows {
		if err := batch.Append(day.MarketCode, day.TradeDate, day.IsOpen, day.HolidayName); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// WriteIssues bulk-inserts quality issues.
func (s *ExportSink) WriteIssues(ctx context.Context, rows []*domain.DataQualityIssue) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO export_issues (
			dataset_name, trade_date, instrument_id, index_code, issue_code,
			severity, issue_detail, source_name, detected_at, run_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, issue := range rows {
		err = batch.Append(
			issue.DatasetName, issue.TradeDate, issue.InstrumentID, issue.IndexCode,
			issue.IssueCode, issue.Severity, issue.IssueDetail, issue.SourceName,
			issue.DetectedAt, issue.RunID,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
