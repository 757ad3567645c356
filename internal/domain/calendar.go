package domain

import (
	"time"

	"github.com/google/uuid"
)

// TradingCalendarRow marks one calendar day as open or closed for a market.
// Corresponds to the trading_calendar table in PostgreSQL.
// Identity is (market_code, trade_date). The calendar is inferred from
// observed benchmark data, not from an authoritative holiday source, so
// closed days carry a fixed sentinel label instead of a real holiday name.
type TradingCalendarRow struct {
	MarketCode  string
	TradeDate   time.Time
	IsOpen      bool
	HolidayName *string
	SourceName  string
	CollectedAt time.Time
	RunID       *uuid.UUID
}

// ClosedDayLabel is the sentinel holiday name for inferred closed days.
const ClosedDayLabel = "CLOSED"
