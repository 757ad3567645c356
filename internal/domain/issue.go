package domain

import (
	"time"

	"github.com/google/uuid"
)

// DataQualityIssue is an append-only record of a detected data anomaly.
// Corresponds to the data_quality_issues table in PostgreSQL.
// Issues are never mutated after insert except for the resolution timestamp.
type DataQualityIssue struct {
	DatasetName  string
	TradeDate    *time.Time
	InstrumentID *uuid.UUID
	IndexCode    *string
	IssueCode    string
	Severity     string
	IssueDetail  string
	SourceName   string
	DetectedAt   time.Time
	RunID        *uuid.UUID
	ResolvedAt   *time.Time
}

// Issue severities.
const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityError = "ERROR"
)

// Issue codes emitted by collectors and the validation job.
const (
	IssueDateNormalizationFailed      = "DATE_NORMALIZATION_FAILED"
	IssueInvalidDailyMarketRow        = "INVALID_DAILY_MARKET_ROW"
	IssueUnmappedIndexCode            = "UNMAPPED_INDEX_CODE"
	IssueInvalidBenchmarkRow          = "INVALID_BENCHMARK_ROW"
	IssueBenchmarkPartialOHLC         = "BENCHMARK_PARTIAL_OHLC"
	IssueBenchmarkDayMissing          = "BENCHMARK_DAY_MISSING"
	IssueOHLCHighInconsistent         = "OHLC_HIGH_INCONSISTENT"
	IssueOHLCLowInconsistent          = "OHLC_LOW_INCONSISTENT"
	IssueNegativeVolume               = "NEGATIVE_VOLUME"
	IssueNegativeTurnover             = "NEGATIVE_TURNOVER"
	IssueNegativeMarketValue          = "NEGATIVE_MARKET_VALUE"
	IssueOpenDayTotalMissing          = "OPEN_DAY_TOTAL_MISSING"
	IssueDelistingRowInvalid          = "DELISTING_ROW_INVALID"
	IssueDelistingBeforeListing       = "DELISTING_DATE_BEFORE_LISTING_DATE"
)

// Dataset names used on issue rows.
const (
	DatasetInstruments = "instruments"
	DatasetDailyMarket = "daily_market_data"
	DatasetBenchmark   = "benchmark_index_data"
)

// IssueOpts carries the optional correlation fields of an issue.
type IssueOpts struct {
	TradeDate    *time.Time
	InstrumentID *uuid.UUID
	IndexCode    *string
	RunID        *uuid.UUID
	Detail       string
}

// NewIssue builds an issue from its mandatory core plus optional correlation
// fields. Detail defaults to the issue code.
func NewIssue(dataset, issueCode, severity, source string, detectedAt time.Time, opts IssueOpts) *DataQualityIssue {
	detail := opts.Detail
	if detail == "" {
		detail = issueCode
	}
	return &DataQualityIssue{
		DatasetName:  dataset,
		TradeDate:    opts.TradeDate,
		InstrumentID: opts.InstrumentID,
		IndexCode:    opts.IndexCode,
		IssueCode:    issueCode,
		Severity:     severity,
		IssueDetail:  detail,
		SourceName:   source,
		DetectedAt:   detectedAt,
		RunID:        opts.RunID,
	}
}
