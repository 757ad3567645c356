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

// BenchmarkStore is an in-memory implementation of storage.BenchmarkStore.
type BenchmarkStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BenchmarkRow // keyed by index_code|index_name|trade_date
}

// NewBenchmarkStore creates a new in-memory benchmark store.
func NewBenchmarkStore() *BenchmarkStore {
	return &BenchmarkStore{
		data: make(map[string]*domain.BenchmarkRow),
	}
}

func benchmarkKey(indexCode, indexName string, tradeDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s", indexCode, indexName, tradeDate.Format("2006-01-02"))
}

// Upsert inserts or replaces a point keyed by (index_code, index_name, trade_date).
func (s *BenchmarkStore) Upsert(_ context.Context, row *domain.BenchmarkRow) error {
	if row == nil || row.IndexCode == "" || row.IndexName == "" || row.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *row
	s.data[benchmarkKey(row.IndexCode, row.IndexName, row.TradeDate)] = &copy
	return nil
}

// GetByIndexRange retrieves points for one index code within [from, to],
// ordered by trade_date ASC then index_name ASC.
func (s *BenchmarkStore) GetByIndexRange(_ context.Context, indexCode string, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BenchmarkRow
	for _, row := range s.data {
		if row.IndexCode == indexCode && !row.TradeDate.Before(from) && !row.TradeDate.After(to) {
			copy := *row
			result = append(result, &copy)
		}
	}

	sortBenchmarkRows(result)
	return result, nil
}

// ListByDateRange retrieves all points within [from, to] across indexes,
// ordered by trade_date ASC.
func (s *BenchmarkStore) ListByDateRange(_ context.Context, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BenchmarkRow
	for _, row := range s.data {
		if !row.TradeDate.Before(from) && !row.TradeDate.After(to) {
			copy := *row
			result = append(result, &copy)
		}
	}

	sortBenchmarkRows(result)
	return result, nil
}

func sortBenchmarkRows(rows []*domain.BenchmarkRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TradeDate.Equal(rows[j].TradeDate) {
			return rows[i].TradeDate.Before(rows[j].TradeDate)
		}
		if rows[i].IndexCode != rows[j].IndexCode {
			return rows[i].IndexCode < rows[j].IndexCode
		}
		return rows[i].IndexName < rows[j].IndexName
	})
}

var _ storage.BenchmarkStore = (*BenchmarkStore)(nil)
