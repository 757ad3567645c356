package domain

import (
	"time"

	"github.com/google/uuid"
)

// DailyMarketRow is one instrument's OHLCV bar for one trading day.
// Corresponds to the daily_market_data table in PostgreSQL.
// Identity is (instrument_id, trade_date).
type DailyMarketRow struct {
	InstrumentID       uuid.UUID
	TradeDate          time.Time
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
	IsTradeHalted      bool // halted rows are exempt from the OHLC bound invariant
	IsUnderSupervision bool
	RecordStatus       string
	SourceName         string
	CollectedAt        time.Time
	RunID              *uuid.UUID
}

// Record status values for daily market rows.
const (
	RecordStatusValid   = "VALID"
	RecordStatusInvalid = "INVALID"
	RecordStatusMissing = "MISSING"
)
