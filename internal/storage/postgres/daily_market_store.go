package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// DailyMarketStore implements storage.DailyMarketStore using PostgreSQL.
type DailyMarketStore struct {
	pool *Pool
}

// NewDailyMarketStore creates a new DailyMarketStore.
func NewDailyMarketStore(pool *Pool) *DailyMarketStore {
	return &DailyMarketStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyMarketStore = (*DailyMarketStore)(nil)

// Upsert inserts or replaces a bar keyed by (instrument_id, trade_date).
// A re-collected day replaces the whole row so that a corrected upstream
// feed wins over a stale earlier pull.
func (s *DailyMarketStore) Upsert(ctx context.Context, row *domain.DailyMarketRow) error {
	query := `
		INSERT INTO daily_market_data (
			instrument_id, trade_date, open, high, low, close, volume,
			turnover_value, market_value, price_change, change_rate, listed_shares,
			is_trade_halted, is_under_supervision, record_status,
			source_name, collected_at, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (instrument_id, trade_date) DO UPDATE SET
			open                 = EXCLUDED.open,
			high                 = EXCLUDED.high,
			low                  = EXCLUDED.low,
			close                = EXCLUDED.close,
			volume               = EXCLUDED.volume,
			turnover_value       = EXCLUDED.turnover_value,
			market_value         = EXCLUDED.market_value,
			price_change         = EXCLUDED.price_change,
			change_rate          = EXCLUDED.change_rate,
			listed_shares        = EXCLUDED.listed_shares,
			is_trade_halted      = EXCLUDED.is_trade_halted,
			is_under_supervision = EXCLUDED.is_under_supervision,
			record_status        = EXCLUDED.record_status,
			source_name          = EXCLUDED.source_name,
			collected_at         = EXCLUDED.collected_at,
			run_id               = EXCLUDED.run_id
	`

	_, err := s.pool.Exec(ctx, query,
		row.InstrumentID,
		row.TradeDate,
		row.Open,
		row.High,
		row.Low,
		row.Close,
		row.Volume,
		row.TurnoverValue,
		row.MarketValue,
		row.PriceChange,
		row.ChangeRate,
		row.ListedShares,
		row.IsTradeHalted,
		row.IsUnderSupervision,
		row.RecordStatus,
		row.SourceName,
		row.CollectedAt,
		row.RunID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("upsert daily bar: %w", err)
	}
	return nil
}

// GetByInstrumentRange retrieves bars for one instrument within [from, to], ordered by trade_date ASC.
func (s *DailyMarketStore) GetByInstrumentRange(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*domain.DailyMarketRow, error) {
	query := selectDailyBar + `
		WHERE instrument_id = $1 AND trade_date >= $2 AND trade_date <= $3
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, instrumentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars by instrument: %w", err)
	}
	defer rows.Close()

	return scanDailyBars(rows)
}

// GetByMarketRange retrieves bars for all instruments of a market within
// [from, to], ordered by trade_date ASC then external code ASC.
func (s *DailyMarketStore) GetByMarketRange(ctx context.Context, marketCode string, from, to time.Time) ([]*domain.DailyMarketRow, error) {
	query := `
		SELECT d.instrument_id, d.trade_date, d.open, d.high, d.low, d.close, d.volume,
		       d.turnover_value, d.market_value, d.price_change, d.change_rate, d.listed_shares,
		       d.is_trade_halted, d.is_under_supervision, d.record_status,
		       d.source_name, d.collected_at, d.run_id
		FROM daily_market_data d
		JOIN instruments i ON i.instrument_id = d.instrument_id
		WHERE i.market_code = $1 AND d.trade_date >= $2 AND d.trade_date <= $3
		ORDER BY d.trade_date ASC, i.external_code ASC
	`

	rows, err := s.pool.Query(ctx, query, marketCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars by market: %w", err)
	}
	defer rows.Close()

	return scanDailyBars(rows)
}

const selectDailyBar = `
	SELECT instrument_id, trade_date, open, high, low, close, volume,
	       turnover_value, market_value, price_change, change_rate, listed_shares,
	       is_trade_halted, is_under_supervision, record_status,
	       source_name, collected_at, run_id
	FROM daily_market_data
`

func scanDailyBars(rows pgx.Rows) ([]*domain.DailyMarketRow, error) {
	var bars []*domain.DailyMarketRow
	for rows.Next() {
		var bar domain.DailyMarketRow
		err := rows.Scan(
			&bar.InstrumentID,
			&bar.TradeDate,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
			&bar.TurnoverValue,
			&bar.MarketValue,
			&bar.PriceChange,
			&bar.ChangeRate,
			&bar.ListedShares,
			&bar.IsTradeHalted,
			&bar.IsUnderSupervision,
			&bar.RecordStatus,
			&bar.SourceName,
			&bar.CollectedAt,
			&bar.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		bars = append(bars, &bar)
	}
	return bars, rows.Err()
}
