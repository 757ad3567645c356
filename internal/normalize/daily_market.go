package normalize

import (
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
)

// DailyMarketInput is a normalized daily OHLCV bar, ready for the daily
// market collector. OHLC are already parsed floats; the halted-trading flag
// has been inferred from the zero patterns below.
type DailyMarketInput struct {
	InstrumentID       string
	ExternalCode       string
	MarketCode         string
	TradeDate          string
	Open               float64
	High               float64
	Low                float64
	Close              float64
	Volume             int64
	TurnoverValue      *float64
	MarketValue        *float64
	PriceChange        *float64
	ChangeRate         *float64
	ListedShares       *int64
	IsTradeHalted      bool
	IsUnderSupervision bool
	RecordStatus       string
}

// DailyMarket normalizes raw daily trade records for one market and day.
// Rows without a resolvable instrument code, or with any unparsable OHLC
// component, are dropped.
//
// Halted-trading inference, applied in order:
//  1. close!=0 with open=high=low=0: halted, all four set to close.
//  2. volume=0 with a flat open=high=low=close bar: halted as-is.
//  3. volume=0, close!=0, and high or low zeroed: halted, zeroed bounds
//     backfilled from open/close.
//
// An all-zero bar deliberately stays non-halted: it reads as missing data,
// not as a halt.
func DailyMarket(rows []Row, marketCode string, tradeDate time.Time) []DailyMarketInput {
	var normalized []DailyMarketInput
	for _, row := range rows {
		code, ok := InstrumentCode(firstNonEmpty(row, dailyInstrumentKeys))
		if !ok {
			continue
		}

		open, openOK := Number(firstNonEmpty(row, dailyOpenKeys))
		high, highOK := Number(firstNonEmpty(row, dailyHighKeys))
		low, lowOK := Number(firstNonEmpty(row, dailyLowKeys))
		closePrice, closeOK := Number(firstNonEmpty(row, dailyCloseKeys))
		if !openOK || !highOK || !lowOK || !closeOK {
			continue
		}
		volume := int64(NumberOr(firstNonEmpty(row, volumeKeys), 0))

		halted := false
		switch {
		case closePrice != 0 && open == 0 && high == 0 && low == 0:
			halted = true
			open, high, low = closePrice, closePrice, closePrice
		case volume == 0 && closePrice != 0 && open == high && high == low && low == closePrice:
			halted = true
		case volume == 0 && closePrice != 0 && (high == 0 || low == 0):
			halted = true
			if open == 0 {
				open = closePrice
			}
			if high == 0 {
				high = max(open, closePrice)
			}
			if low == 0 {
				low = min(open, closePrice)
			}
		}

		normalized = append(normalized, DailyMarketInput{
			InstrumentID:  idhash.InstrumentID(marketCode, code).String(),
			ExternalCode:  code,
			MarketCode:    marketCode,
			TradeDate:     tradeDate.Format(isoDate),
			Open:          open,
			High:          high,
			Low:           low,
			Close:         closePrice,
			Volume:        volume,
			TurnoverValue: NumberPtr(firstNonEmpty(row, turnoverKeys)),
			MarketValue:   NumberPtr(firstNonEmpty(row, marketValueKeys)),
			PriceChange:   NumberPtr(firstNonEmpty(row, priceChangeKeys)),
			ChangeRate:    NumberPtr(firstNonEmpty(row, changeRateKeys)),
			ListedShares:  positiveIntPtr(firstNonEmpty(row, listedSharesKeys)),
			IsTradeHalted: halted,
			RecordStatus:  domain.RecordStatusValid,
		})
	}
	return normalized
}
