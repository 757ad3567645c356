package normalize

import (
	"strings"
	"time"

	"krx-market-lab/internal/domain"
)

// BenchmarkInput is a normalized benchmark index data point, ready for the
// benchmark collector. Open/high/low are individually optional; close is
// mandatory and rows without it are dropped. The unparsed provider strings
// are kept alongside the parsed floats because index feeds use ambiguous
// placeholders ("-", "0.00") whose intent matters for audits.
type BenchmarkInput struct {
	IndexCode     string
	IndexName     string
	TradeDate     string
	Open          *float64
	High          *float64
	Low           *float64
	Close         *float64
	RawOpen       *string
	RawHigh       *string
	RawLow        *string
	RawClose      *string
	Volume        *int64
	TurnoverValue *float64
	MarketCap     *float64
	PriceChange   *float64
	ChangeRate    *float64
	RecordStatus  string
}

// Benchmark normalizes raw index daily records for one index and day.
// Record status is PARTIAL when any of open/high/low is missing, else VALID.
func Benchmark(rows []Row, indexCode string, tradeDate time.Time) []BenchmarkInput {
	upperIndex := strings.ToUpper(indexCode)

	var normalized []BenchmarkInput
	for _, row := range rows {
		rawOpen := RawText(firstNonEmpty(row, benchOpenKeys))
		rawHigh := RawText(firstNonEmpty(row, benchHighKeys))
		rawLow := RawText(firstNonEmpty(row, benchLowKeys))
		rawClose := RawText(firstNonEmpty(row, benchCloseKeys))

		openPrice := numberPtrFromText(rawOpen)
		highPrice := numberPtrFromText(rawHigh)
		lowPrice := numberPtrFromText(rawLow)
		closePrice := numberPtrFromText(rawClose)
		if closePrice == nil {
			continue
		}

		status := domain.BenchmarkStatusValid
		if openPrice == nil || highPrice == nil || lowPrice == nil {
			status = domain.BenchmarkStatusPartial
		}

		name := textOr(firstNonEmpty(row, indexNameKeys), upperIndex)

		normalized = append(normalized, BenchmarkInput{
			IndexCode:     upperIndex,
			IndexName:     name,
			TradeDate:     tradeDate.Format(isoDate),
			Open:          openPrice,
			High:          highPrice,
			Low:           lowPrice,
			Close:         closePrice,
			RawOpen:       rawOpen,
			RawHigh:       rawHigh,
			RawLow:        rawLow,
			RawClose:      rawClose,
			Volume:        positiveIntPtr(firstNonEmpty(row, benchVolumeKeys)),
			TurnoverValue: NumberPtr(firstNonEmpty(row, benchTurnoverKeys)),
			MarketCap:     NumberPtr(firstNonEmpty(row, benchMarketCapKeys)),
			PriceChange:   NumberPtr(firstNonEmpty(row, benchPriceChangeKeys)),
			ChangeRate:    NumberPtr(firstNonEmpty(row, benchChangeRateKeys)),
			RecordStatus:  status,
		})
	}
	return normalized
}

func numberPtrFromText(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	return NumberPtr(*raw)
}
