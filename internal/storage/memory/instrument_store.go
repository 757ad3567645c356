package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// InstrumentStore is an in-memory implementation of storage.InstrumentStore.
type InstrumentStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*domain.Instrument // keyed by instrument_id
}

// NewInstrumentStore creates a new in-memory instrument store.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		data: make(map[uuid.UUID]*domain.Instrument),
	}
}

// Upsert inserts or refreshes an instrument keyed by instrument_id.
// An existing delisting date is never cleared by an upsert carrying nil.
func (s *InstrumentStore) Upsert(_ context.Context, inst *domain.Instrument) error {
	if inst == nil || inst.InstrumentID == uuid.Nil || inst.ExternalCode == "" || inst.MarketCode == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *inst
	if existing, ok := s.data[inst.InstrumentID]; ok {
		if copy.DelistingDate == nil {
			copy.DelistingDate = existing.DelistingDate
		}
		now := time.Now().UTC()
		copy.UpdatedAt = &now
	}
	s.data[inst.InstrumentID] = &copy
	return nil
}

// GetByID retrieves an instrument. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(_ context.Context, instrumentID uuid.UUID) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.data[instrumentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *inst
	return &copy, nil
}

// GetByMarketCode retrieves all instruments of a market, ordered by external_code ASC.
func (s *InstrumentStore) GetByMarketCode(_ context.Context, marketCode string) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Instrument
	for _, inst := range s.data {
		if inst.MarketCode == marketCode {
			copy := *inst
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExternalCode < result[j].ExternalCode
	})

	return result, nil
}

// Exists reports whether an instrument row is present.
func (s *InstrumentStore) Exists(_ context.Context, instrumentID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[instrumentID]
	return ok, nil
}

// UpdateDelisting sets the delisting date of an existing instrument.
func (s *InstrumentStore) UpdateDelisting(_ context.Context, instrumentID uuid.UUID, delistingDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.data[instrumentID]
	if !ok {
		return storage.ErrNotFound
	}
	inst.DelistingDate = &delistingDate
	now := time.Now().UTC()
	inst.UpdatedAt = &now
	return nil
}

var _ storage.InstrumentStore = (*InstrumentStore)(nil)
