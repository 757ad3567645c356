package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// CalendarStore is an in-memory implementation of storage.CalendarStore.
type CalendarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradingCalendarRow // keyed by market_code|trade_date
}

// NewCalendarStore creates a new in-memory calendar store.
func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		data: make(map[string]*domain.TradingCalendarRow),
	}
}

func calendarKey(marketCode string, tradeDate time.Time) string {
	return fmt.Sprintf("%s|%s", marketCode, tradeDate.Format("2006-01-02"))
}

// Upsert inserts or replaces a day keyed by (market_code, trade_date).
func (s *CalendarStore) Upsert(_ context.Context, row *domain.TradingCalendarRow) error {
	if row == nil || row.MarketCode == "" || row.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *row
	s.data[calendarKey(row.MarketCode, row.TradeDate)] = &copy
	return nil
}

// OpenDays retrieves the open trading days of a market within [from, to], ordered ASC.
func (s *CalendarStore) OpenDays(ctx context.Context, marketCode string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.ListByRange(ctx, marketCode, from, to)
	if err != nil {
		return nil, err
	}

	var days []time.Time
	for _, row := range rows {
		if row.IsOpen {
			days = append(days, row.TradeDate)
		}
	}
	return days, nil
}

// ListByRange retrieves all calendar days of a market within [from, to], ordered ASC.
func (s *CalendarStore) ListByRange(_ context.Context, marketCode string, from, to time.Time) ([]*domain.TradingCalendarRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradingCalendarRow
	for _, row := range s.data {
		if row.MarketCode == marketCode && !row.TradeDate.Before(from) && !row.TradeDate.After(to) {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})

	return result, nil
}

var _ storage.CalendarStore = (*CalendarStore)(nil)
