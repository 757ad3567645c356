package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportJob tracks one columnar export of curated datasets.
// Corresponds to the export_jobs table in PostgreSQL; the exported rows
// themselves land in ClickHouse.
type ExportJob struct {
	JobID        uuid.UUID
	Status       string
	Progress     int // 0..100
	SubmittedAt  time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Datasets     []string
	RowCounts    map[string]int
	ErrorCode    *string
	ErrorMessage *string
	Request      ExportRequest
}

// Export job statuses.
const (
	ExportStatusPending   = "PENDING"
	ExportStatusRunning   = "RUNNING"
	ExportStatusSucceeded = "SUCCEEDED"
	ExportStatusFailed    = "FAILED"
)

// ExportRequest describes which curated slices an export job covers.
type ExportRequest struct {
	MarketCodes   []string  `json:"market_codes"`
	IndexCodes    []string  `json:"index_codes"`
	SeriesNames   []string  `json:"series_names,omitempty"`
	DateFrom      string    `json:"date_from"`
	DateTo        string    `json:"date_to"`
	IncludeIssues bool      `json:"include_issues"`
}

// CoreMarketRecord is the curated daily-market projection consumed by the
// exporter and downstream backtesting: the daily bar joined with its
// instrument master attributes, filtered to the instrument's listed window.
// Column set and order are a compatibility contract with downstream readers.
type CoreMarketRecord struct {
	InstrumentID       uuid.UUID
	ExternalCode       string
	MarketCode         string
	InstrumentName     string
	ListingDate        time.Time
	DelistingDate      *time.Time
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
	IsTradeHalted      bool
	IsUnderSupervision bool
	RecordStatus       string
}
