package postgres

import (
	"context"
	"fmt"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// CalendarStore implements storage.CalendarStore using PostgreSQL.
type CalendarStore struct {
	pool *Pool
}

// NewCalendarStore creates a new CalendarStore.
func NewCalendarStore(pool *Pool) *CalendarStore {
	return &CalendarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CalendarStore = (*CalendarStore)(nil)

// Upsert inserts or replaces a day keyed by (market_code, trade_date).
func (s *CalendarStore) Upsert(ctx context.Context, row *domain.TradingCalendarRow) error {
	query := `
		INSERT INTO trading_calendar (
			market_code, trade_date, is_open, holiday_name, source_name, collected_at, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (market_code, trade_date) DO UPDATE SET
			is_open      = EXCLUDED.is_open,
			holiday_name = EXCLUDED.holiday_name,
			source_name  = EXCLUDED.source_name,
			collected_at = EXCLUDED.collected_at,
			run_id       = EXCLUDED.run_id
	`

	_, err := s.pool.Exec(ctx, query,
		row.MarketCode,
		row.TradeDate,
		row.IsOpen,
		row.HolidayName,
		row.SourceName,
		row.CollectedAt,
		row.RunID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("upsert calendar day: %w", err)
	}
	return nil
}

// OpenDays retrieves the open trading days of a market within [from, to], ordered ASC.
func (s *CalendarStore) OpenDays(ctx context.Context, marketCode string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT trade_date
		FROM trading_calendar
		WHERE market_code = $1 AND trade_date >= $2 AND trade_date <= $3 AND is_open
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, marketCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("query open days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan open day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// ListByRange retrieves all calendar days of a market within [from, to], ordered ASC.
func (s *CalendarStore) ListByRange(ctx context.Context, marketCode string, from, to time.Time) ([]*domain.TradingCalendarRow, error) {
	query := `
		SELECT market_code, trade_date, is_open, holiday_name, source_name, collected_at, run_id
		FROM trading_calendar
		WHERE market_code = $1 AND trade_date >= $2 AND trade_date <= $3
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, marketCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("query calendar range: %w", err)
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
