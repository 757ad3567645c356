package memory

import (
	"context"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore,
// composed over the entity stores. It mirrors the SQL dataset views used by
// the postgres backend.
type DatasetStore struct {
	instruments *InstrumentStore
	daily       *DailyMarketStore
	benchmarks  *BenchmarkStore
	calendar    *CalendarStore
	issues      *IssueStore
}

// NewDatasetStore creates a dataset reader over the given entity stores.
func NewDatasetStore(instruments *InstrumentStore, daily *DailyMarketStore, benchmarks *BenchmarkStore, calendar *CalendarStore, issues *IssueStore) *DatasetStore {
	return &DatasetStore{
		instruments: instruments,
		daily:       daily,
		benchmarks:  benchmarks,
		calendar:    calendar,
		issues:      issues,
	}
}

// CoreMarket retrieves daily bars joined with instrument master attributes,
// filtered to each instrument's listed window.
func (s *DatasetStore) CoreMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error) {
	var result []*domain.CoreMarketRecord
	for _, marketCode := range marketCodes {
		instruments, err := s.instruments.GetByMarketCode(ctx, marketCode)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*domain.Instrument, len(instruments))
		for _, inst := range instruments {
			byID[inst.InstrumentID.String()] = inst
		}

		rows, err := s.daily.GetByMarketRange(ctx, marketCode, from, to)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			inst := byID[row.InstrumentID.String()]
			if inst == nil {
				continue
			}
			// Listed-window filter: drop bars before listing or after delisting.
			if row.TradeDate.Before(inst.ListingDate) {
				continue
			}
			if inst.DelistingDate != nil && row.TradeDate.After(*inst.DelistingDate) {
				continue
			}
			result = append(result, coreMarketRecord(row, inst))
		}
	}
	return result, nil
}

// SignalMarket is CoreMarket restricted to VALID, non-halted, non-supervised rows.
func (s *DatasetStore) SignalMarket(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.CoreMarketRecord, error) {
	records, err := s.CoreMarket(ctx, marketCodes, from, to)
	if err != nil {
		return nil, err
	}

	var result []*domain.CoreMarketRecord
	for _, rec := range records {
		if rec.RecordStatus != domain.RecordStatusValid || rec.IsTradeHalted || rec.IsUnderSupervision {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// Benchmark retrieves benchmark points for the given index codes within
// [from, to]; an empty seriesNames keeps every series.
func (s *DatasetStore) Benchmark(ctx context.Context, indexCodes, seriesNames []string, from, to time.Time) ([]*domain.BenchmarkRow, error) {
	keepSeries := make(map[string]bool, len(seriesNames))
	for _, name := range seriesNames {
		keepSeries[name] = true
	}

	var result []*domain.BenchmarkRow
	for _, indexCode := range indexCodes {
		rows, err := s.benchmarks.GetByIndexRange(ctx, indexCode, from, to)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if len(keepSeries) > 0 && !keepSeries[row.IndexName] {
				continue
			}
			result = append(result, row)
		}
	}
	return result, nil
}

// Calendar retrieves calendar days for the given markets within [from, to].
func (s *DatasetStore) Calendar(ctx context.Context, marketCodes []string, from, to time.Time) ([]*domain.TradingCalendarRow, error) {
	var result []*domain.TradingCalendarRow
	for _, marketCode := range marketCodes {
		rows, err := s.calendar.ListByRange(ctx, marketCode, from, to)
		if err != nil {
			return nil, err
		}
		result = append(result, rows...)
	}
	return result, nil
}

// Issues retrieves quality issues within [from, to].
func (s *DatasetStore) Issues(ctx context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error) {
	return s.issues.ListByDateRange(ctx, from, to)
}

func coreMarketRecord(row *domain.DailyMarketRow, inst *domain.Instrument) *domain.CoreMarketRecord {
	return &domain.CoreMarketRecord{
		InstrumentID:       row.InstrumentID,
		ExternalCode:       inst.ExternalCode,
		MarketCode:         inst.MarketCode,
		InstrumentName:     inst.Name,
		ListingDate:        inst.ListingDate,
		DelistingDate:      inst.DelistingDate,
		TradeDate:          row.TradeDate,
		Open:               row.Open,
		High:               row.High,
		Low:                row.Low,
		Close:              row.Close,
		Volume:             row.Volume,
		TurnoverValue:      row.TurnoverValue,
		MarketValue:        row.MarketValue,
		PriceChange:        row.PriceChange,
		ChangeRate:         row.ChangeRate,
		ListedShares:       row.ListedShares,
		IsTradeHalted:      row.IsTradeHalted,
		IsUnderSupervision: row.IsUnderSupervision,
		RecordStatus:       row.RecordStatus,
	}
}

var _ storage.DatasetStore = (*DatasetStore)(nil)
