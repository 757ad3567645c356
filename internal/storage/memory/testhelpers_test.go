package memory

import (
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
)

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func testInstrument(marketCode, externalCode string) *domain.Instrument {
	return &domain.Instrument{
		InstrumentID: idhash.InstrumentID(marketCode, externalCode),
		ExternalCode: externalCode,
		MarketCode:   marketCode,
		Name:         "Instrument " + externalCode,
		ListingDate:  day("2020-01-02"),
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
}

func testDailyRow(marketCode, externalCode, tradeDate string) *domain.DailyMarketRow {
	return &domain.DailyMarketRow{
		InstrumentID: idhash.InstrumentID(marketCode, externalCode),
		TradeDate:    day(tradeDate),
		Open:         100,
		High:         110,
		Low:          95,
		Close:        105,
		Volume:       1000,
		RecordStatus: domain.RecordStatusValid,
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
}

func testBenchmarkRow(indexCode, indexName, tradeDate string) *domain.BenchmarkRow {
	return &domain.BenchmarkRow{
		IndexCode:    indexCode,
		IndexName:    indexName,
		TradeDate:    day(tradeDate),
		Close:        2650.5,
		RecordStatus: domain.BenchmarkStatusValid,
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
}
