package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// DatasetStore implements storage.DatasetStore using PostgreSQL. The curated
// projections are plain queries over the collection tables; materialization
// happens in the analytic sink, not here.
type DatasetStore struct {
	pool   *Pool
	issues *IssueStore
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(pool *Pool) *DatasetStore {
	return &DatasetStore{
		pool:   pool,
		issues: NewIssueStore(pool),
	}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

const selectCoreMarket = `
	SELECT i.instrument_id, i.external_code, i.market_code, i.name,
	       i.listing_date, i.delisting_date,
	       d.trade_date, d.open, d.high, d.low, d.close, d.volume,
	       d.turnover_value, d.market_value, d.price_change, d.change_rate,
	       d.listed_shares, d.is_trade_halted, d.is_under_supervision, d.record_status
	FROM daily_market_data d
	JOIN instruments i ON i.instrument_id = d.instrument_id
	WHERE i.market_code = ANY($1)
	  AND d.trade_date >= $2 AND d.trade_date <= $3
	  AND d.trade_date >= i.listing_date
	  AND (i.delisting_date IS NULL OR d.trade_date <= i.delisting_date)
`

// CoreMarket retrieves daily bars joined with instrument master attributes,
// filtered to each instrument's listed window, ordered by trade_date ASC
// then external_code ASC.
func (s *DatasetStore) CoreMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error) {
	query := selectCoreMarket + ` ORDER BY d.trade_date ASC, i.external_code ASC`

	rows, err := s.pool.Query(ctx, query, marketCodes, from, to)
	if err != nil {
		return nil, fmt.Errorf("query core market: %w", err)
	}
	defer rows.Close()

	return scanCoreMarket(rows)
}

// SignalMarket is CoreMarket restricted to VALID, non-halted,
// non-supervised rows.
func (s *DatasetStore) SignalMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error) {
	query := selectCoreMarket + `
	  AND d.record_status = $4
	  AND NOT d.is_trade_halted
	  AND NOT d.is_under_supervision
	ORDER BY d.trade_date ASC, i.external_code ASC`

	rows, err := s.pool.Query(ctx, query, marketCodes, from, to, domain.RecordStatusValid)
	if err != nil {
		return nil, fmt.Errorf("query signal market: %w", err)
	}
	defer rows.Close()

	return scanCoreMarket(rows)
}

// Benchmark retrieves benchmark points for the given index codes within
// [from, to]; an empty seriesNames keeps every series.
func (s *DatasetStore) Benchmark(ctx context.Context, indexCodes, seriesNames []string, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	query := selectBenchmark + `
		WHERE index_code = ANY($1)
		  AND ($2::text[] = '{}' OR index_name = ANY($2))
		  AND trade_date >= $3 AND trade_date <= $4
		ORDER BY trade_date ASC, index_code ASC, index_name ASC
	`
	if seriesNames == nil {
		seriesNames = []string{}
	}

	rows, err := s.pool.Query(ctx, query, indexCodes, seriesNames, from, to)
	if err != nil {
		return nil, fmt.Errorf("query benchmark dataset: %w", err)
	}
	defer rows.Close()

	return scanBenchmarks(rows)
}

// Calendar retrieves calendar days for the given markets within [from, to].
func (s *DatasetStore) Calendar(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.TradingCalendarRow, error) {
	query := `
		SELECT market_code, trade_date, is_open, holiday_name, source_name, collected_at, run_id
		FROM trading_calendar
		WHERE market_code = ANY($1) AND trade_date >= $2 AND trade_date <= $3
		ORDER BY market_code ASC, trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, marketCodes, from, to)
	if err != nil {
		return nil, fmt.Errorf("query calendar dataset: %w", err)
	}
	defer rows.Close()

	var days []*domain.TradingCalendarRow
	for rows.Next() {
		var day domain.TradingCalendarRow
		err := rows.Scan(
			&day.MarketCode,
			&day.TradeDate,
			&day.IsOpen,
			&day.HolidayName,
			&day.SourceName,
			&day.CollectedAt,
			&day.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan calendar day: %w", err)
		}
		days = append(days, &day)
	}
	return days, rows.Err()
}

// Issues retrieves quality issues within [from, to].
func (s *DatasetStore) Issues(ctx context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error) {
	return s.issues.ListByDateRange(ctx, from, to)
}

func scanCoreMarket(rows pgx.Rows) ([]*domain.CoreMarketRecord, error) {
	var records []*domain.CoreMarketRecord
	for rows.Next() {
		var rec domain.CoreMarketRecord
		err := rows.Scan(
			&rec.InstrumentID,
			&rec.ExternalCode,
			&rec.MarketCode,
			&rec.InstrumentName,
			&rec.ListingDate,
			&rec.DelistingDate,
			&rec.TradeDate,
			&rec.Open,
			&rec.High,
			&rec.Low,
			&rec.Close,
			&rec.Volume,
			&rec.TurnoverValue,
			&rec.MarketValue,
			&rec.PriceChange,
			&rec.ChangeRate,
			&rec.ListedShares,
			&rec.IsTradeHalted,
			&rec.IsUnderSupervision,
			&rec.RecordStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("scan core market record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
