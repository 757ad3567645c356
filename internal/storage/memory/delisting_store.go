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

// DelistingStore is an in-memory implementation of storage.DelistingStore.
type DelistingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DelistingSnapshotRow // keyed by market_code|external_code
}

// NewDelistingStore creates a new in-memory delisting snapshot store.
func NewDelistingStore() *DelistingStore {
	return &DelistingStore{
		data: make(map[string]*domain.DelistingSnapshotRow),
	}
}

func delistingKey(marketCode, externalCode string) string {
	return fmt.Sprintf("%s|%s", marketCode, externalCode)
}

// Upsert inserts or refreshes a row keyed by (market_code, external_code).
func (s *DelistingStore) Upsert(_ context.Context, row *domain.DelistingSnapshotRow) error {
	if row == nil || row.MarketCode == "" || row.ExternalCode == "" || row.DelistingDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := delistingKey(row.MarketCode, row.ExternalCode)
	copy := *row
	if _, exists := s.data[key]; exists {
		now := time.Now().UTC()
		copy.UpdatedAt = &now
	}
	s.data[key] = &copy
	return nil
}

// GetByMarket retrieves all snapshot rows of a market, ordered by external_code ASC.
func (s *DelistingStore) GetByMarket(_ context.Context, marketCode string) ([]*domain.DelistingSnapshotRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DelistingSnapshotRow
	for _, row := range s.data {
		if row.MarketCode == marketCode {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExternalCode < result[j].ExternalCode
	})

	return result, nil
}

var _ storage.DelistingStore = (*DelistingStore)(nil)
