package domain

import (
	"time"

	"github.com/google/uuid"
)

// BenchmarkRow is one benchmark index data point for one trading day.
// Corresponds to the benchmark_index_data table in PostgreSQL.
// Identity is (index_code, index_name, trade_date): one index code can carry
// several named series (current vs legacy methodology), so the series name is
// part of the key.
type BenchmarkRow struct {
	IndexCode     string
	IndexName     string
	TradeDate     time.Time
	Open          *float64
	High          *float64
	Low           *float64
	Close         float64
	RawOpen       *string // unparsed provider values kept for audit
	RawHigh       *string
	RawLow        *string
	RawClose      *string
	Volume        *int64
	TurnoverValue *float64
	MarketCap     *float64
	PriceChange   *float64
	ChangeRate    *float64
	RecordStatus  string
	SourceName    string
	CollectedAt   time.Time
	RunID         *uuid.UUID
}

// Record status values for benchmark rows.
const (
	BenchmarkStatusValid   = "VALID"
	BenchmarkStatusPartial = "PARTIAL"
	BenchmarkStatusInvalid = "INVALID"
)
