package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// BenchmarkStore implements storage.BenchmarkStore using PostgreSQL.
type BenchmarkStore struct {
	pool *Pool
}

// NewBenchmarkStore creates a new BenchmarkStore.
func NewBenchmarkStore(pool *Pool) *BenchmarkStore {
	return &BenchmarkStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BenchmarkStore = (*BenchmarkStore)(nil)

// Upsert inserts or replaces a point keyed by (index_code, index_name, trade_date).
func (s *BenchmarkStore) Upsert(ctx context.Context, row *domain.BenchmarkRow) error {
	query := `
		INSERT INTO benchmark_index_data (
			index_code, index_name, trade_date, open, high, low, close,
			raw_open, raw_high, raw_low, raw_close, volume, turnover_value,
			market_cap, price_change, change_rate, record_status,
			source_name, collected_at, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (index_code, index_name, trade_date) DO UPDATE SET
			open           = EXCLUDED.open,
			high           = EXCLUDED.high,
			low            = EXCLUDED.low,
			close          = EXCLUDED.close,
			raw_open       = EXCLUDED.raw_open,
			raw_high       = EXCLUDED.raw_high,
			raw_low        = EXCLUDED.raw_low,
			raw_close      = EXCLUDED.raw_close,
			volume         = EXCLUDED.volume,
			turnover_value = EXCLUDED.turnover_value,
			market_cap     = EXCLUDED.market_cap,
			price_change   = EXCLUDED.price_change,
			change_rate    = EXCLUDED.change_rate,
			record_status  = EXCLUDED.record_status,
			source_name    = EXCLUDED.source_name,
			collected_at   = EXCLUDED.collected_at,
			run_id         = EXCLUDED.run_id
	`

	_, err := s.pool.Exec(ctx, query,
		row.IndexCode,
		row.IndexName,
		row.TradeDate,
		row.Open,
		row.High,
		row.Low,
		row.Close,
		row.RawOpen,
		row.RawHigh,
		row.RawLow,
		row.RawClose,
		row.Volume,
		row.TurnoverValue,
		row.MarketCap,
		row.PriceChange,
		row.ChangeRate,
		row.RecordStatus,
		row.SourceName,
		row.CollectedAt,
		row.RunID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("upsert benchmark point: %w", err)
	}
	return nil
}

// GetByIndexRange retrieves points for one index code within [from, to],
// ordered by trade_date ASC then index_name ASC.
func (s *BenchmarkStore) GetByIndexRange(ctx context.Context, indexCode string, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	query := selectBenchmark + `
		WHERE index_code = $1 AND trade_date >= $2 AND trade_date <= $3
		ORDER BY trade_date ASC, index_name ASC
	`

	rows, err := s.pool.Query(ctx, query, indexCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("query benchmark by index: %w", err)
	}
	defer rows.Close()

	return scanBenchmarks(rows)
}

// ListByDateRange retrieves all points within [from, to] across indexes,
// ordered by trade_date ASC.
func (s *BenchmarkStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	query := selectBenchmark + `
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, index_code ASC, index_name ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query benchmark by date range: %w", err)
	}
	defer rows.Close()

	return scanBenchmarks(rows)
}

const selectBenchmark = `
	SELECT index_code, index_name, trade_date, open, high, low, close,
	       raw_open, raw_high, raw_low, raw_close, volume, turnover_value,
	       market_cap, price_change, change_rate, record_status,
	       source_name, collected_at, run_id
	FROM benchmark_index_data
`

func scanBenchmarks(rows pgx.Rows) ([]*domain.BenchmarkRow, error) {
	var points []*domain.BenchmarkRow
	for rows.Next() {
		var point domain.BenchmarkRow
		err := rows.Scan(
			&point.IndexCode,
			&point.IndexName,
			&point.TradeDate,
			&point.Open,
			&point.High,
			&point.Low,
			&point.Close,
			&point.RawOpen,
			&point.RawHigh,
			&point.RawLow,
			&point.RawClose,
			&point.Volume,
			&point.TurnoverValue,
			&point.MarketCap,
			&point.PriceChange,
			&point.ChangeRate,
			&point.RecordStatus,
			&point.SourceName,
			&point.CollectedAt,
			&point.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan benchmark point: %w", err)
		}
		points = append(points, &point)
	}
	return points, rows.Err()
}
