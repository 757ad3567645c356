package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// DailyMarketStore is an in-memory implementation of storage.DailyMarketStore.
// It holds a reference to the instrument store for the market-code join.
type DailyMarketStore struct {
	mu          sync.RWMutex
	data        map[string]*domain.DailyMarketRow // keyed by instrument_id|trade_date
	instruments *InstrumentStore
}

// NewDailyMarketStore creates a new in-memory daily market store.
func NewDailyMarketStore(instruments *InstrumentStore) *DailyMarketStore {
	return &DailyMarketStore{
		data:        make(map[string]*domain.DailyMarketRow),
		instruments: instruments,
	}
}

func dailyKey(instrumentID uuid.UUID, tradeDate time.Time) string {
	return fmt.Sprintf("%s|%s", instrumentID, tradeDate.Format("2006-01-02"))
}

// Upsert inserts or replaces a bar keyed by (instrument_id, trade_date).
func (s *DailyMarketStore) Upsert(_ context.Context, row *domain.DailyMarketRow) error {
	if row == nil || row.InstrumentID == uuid.Nil || row.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *row
	s.data[dailyKey(row.InstrumentID, row.TradeDate)] = &copy
	return nil
}

// GetByInstrumentRange retrieves bars for one instrument within [from, to], ordered by trade_date ASC.
func (s *DailyMarketStore) GetByInstrumentRange(_ context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*domain.DailyMarketRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyMarketRow
	for _, row := range s.data {
		if row.InstrumentID == instrumentID && !row.TradeDate.Before(from) && !row.TradeDate.After(to) {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})

	return result, nil
}

// GetByMarketRange retrieves bars for all instruments of a market within
// [from, to], ordered by trade_date ASC then external code ASC.
func (s *DailyMarketStore) GetByMarketRange(ctx context.Context, marketCode string, from, to time.Time) ([]*domain.DailyMarketRow, error) {
	instruments, err := s.instruments.GetByMarketCode(ctx, marketCode)
	if err != nil {
		return nil, err
	}
	inMarket := make(map[uuid.UUID]string, len(instruments))
	for _, inst := range instruments {
		inMarket[inst.InstrumentID] = inst.ExternalCode
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyMarketRow
	for _, row := range s.data {
		if _, ok := inMarket[row.InstrumentID]; !ok {
			continue
		}
		if row.TradeDate.Before(from) || row.TradeDate.After(to) {
			continue
		}
		copy := *row
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].TradeDate.Equal(result[j].TradeDate) {
			return result[i].TradeDate.Before(result[j].TradeDate)
		}
		return inMarket[result[i].InstrumentID] < inMarket[result[j].InstrumentID]
	})

	return result, nil
}

var _ storage.DailyMarketStore = (*DailyMarketStore)(nil)
