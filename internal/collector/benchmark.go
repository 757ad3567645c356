package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage"
)

// DefaultIndexCodeMap maps provider index codes to canonical ones.
func DefaultIndexCodeMap() map[string]string {
	return map[string]string{
		"KOSPI":  "KOSPI",
		"KOSDAQ": "KOSDAQ",
	}
}

// BenchmarkCollector upserts normalized benchmark index points and sweeps
// each series for calendar-day gaps.
type BenchmarkCollector struct {
	benchmarks   storage.BenchmarkStore
	issues       storage.IssueStore
	runs         storage.RunStore
	indexCodeMap map[string]string
}

// NewBenchmarkCollector creates a benchmark collector. A nil indexCodeMap
// falls back to DefaultIndexCodeMap.
func NewBenchmarkCollector(benchmarks storage.BenchmarkStore, issues storage.IssueStore, runStore storage.RunStore, indexCodeMap map[string]string) *BenchmarkCollector {
	if indexCodeMap == nil {
		indexCodeMap = DefaultIndexCodeMap()
	}
	return &BenchmarkCollector{benchmarks: benchmarks, issues: issues, runs: runStore, indexCodeMap: indexCodeMap}
}

type seriesKey struct {
	indexCode string
	indexName string
}

// Collect validates and upserts benchmark points, returning the upserted
// count. Unmapped index codes and VALID rows violating OHLC consistency are
// dropped with ERROR issues; PARTIAL rows are kept but recorded as warnings.
// After the batch, each (index_code, index_name) series spanning at least
// two dates is swept for missing contiguous calendar days. The sweep runs
// over raw calendar days on purpose: the true trading calendar is only
// derived after this step, so weekend gaps read as provider signal here.
func (c *BenchmarkCollector) Collect(ctx context.Context, inputRows []normalize.BenchmarkInput, source string, runID *uuid.UUID) (int, error) {
	now := time.Now().UTC()
	resolvedRun := runs.ResolveExisting(ctx, c.runs, runID)

	var issues []*domain.DataQualityIssue
	seriesDates := make(map[seriesKey]map[time.Time]bool)
	upserted := 0

	for _, row := range inputRows {
		rawCode := strings.ToUpper(row.IndexCode)
		canonical, ok := c.indexCodeMap[rawCode]
		if !ok {
			issues = append(issues, domain.NewIssue(
				domain.DatasetBenchmark, domain.IssueUnmappedIndexCode, domain.SeverityError, source, now,
				domain.IssueOpts{IndexCode: &rawCode, RunID: resolvedRun, Detail: fmt.Sprintf("index_code=%s", rawCode)},
			))
			continue
		}

		tradeDate, err := parseISODate(row.TradeDate)
		if err != nil {
			issues = append(issues, domain.NewIssue(
				domain.DatasetBenchmark, domain.IssueInvalidBenchmarkRow, domain.SeverityError, source, now,
				domain.IssueOpts{IndexCode: &canonical, RunID: resolvedRun, Detail: fmt.Sprintf("%s: trade_date: %v", row.IndexName, err)},
			))
			continue
		}
		if row.Close == nil {
			issues = append(issues, domain.NewIssue(
				domain.DatasetBenchmark, domain.IssueInvalidBenchmarkRow, domain.SeverityError, source, now,
				domain.IssueOpts{IndexCode: &canonical, TradeDate: &tradeDate, RunID: resolvedRun, Detail: fmt.Sprintf("%s: close is required", row.IndexName)},
			))
			continue
		}

		status := benchmarkStatus(&row)
		if status == domain.BenchmarkStatusValid {
			if reason := checkBenchmarkOHLC(&row); reason != "" {
				issues = append(issues, domain.NewIssue(
					domain.DatasetBenchmark, domain.IssueInvalidBenchmarkRow, domain.SeverityError, source, now,
					domain.IssueOpts{IndexCode: &canonical, TradeDate: &tradeDate, RunID: resolvedRun, Detail: fmt.Sprintf("%s: %s", row.IndexName, reason)},
				))
				continue
			}
		}
		if status == domain.BenchmarkStatusPartial {
			issues = append(issues, domain.NewIssue(
				domain.DatasetBenchmark, domain.IssueBenchmarkPartialOHLC, domain.SeverityWarn, source, now,
				domain.IssueOpts{IndexCode: &canonical, TradeDate: &tradeDate, RunID: resolvedRun, Detail: fmt.Sprintf("%s: partial OHLC", row.IndexName)},
			))
		}

		point := &domain.BenchmarkRow{
			IndexCode:     canonical,
			IndexName:     row.IndexName,
			TradeDate:     tradeDate,
			Open:          row.Open,
			High:          row.High,
			Low:           row.Low,
			Close:         *row.Close,
			RawOpen:       row.RawOpen,
			RawHigh:       row.RawHigh,
			RawLow:        row.RawLow,
			RawClose:      row.RawClose,
			Volume:        row.Volume,
			TurnoverValue: row.TurnoverValue,
			MarketCap:     row.MarketCap,
			PriceChange:   row.PriceChange,
			ChangeRate:    row.ChangeRate,
			RecordStatus:  status,
			SourceName:    source,
			CollectedAt:   now,
			RunID:         resolvedRun,
		}
		if err := c.benchmarks.Upsert(ctx, point); err != nil {
			return upserted, fmt.Errorf("upsert benchmark %s/%s: %w", canonical, row.TradeDate, err)
		}
		upserted++

		key := seriesKey{indexCode: canonical, indexName: row.IndexName}
		if seriesDates[key] == nil {
			seriesDates[key] = make(map[time.Time]bool)
		}
		seriesDates[key][tradeDate] = true
	}

	issues = append(issues, c.sweepMissingDays(seriesDates, source, now, resolvedRun)...)

	if err := insertIssues(ctx, c.issues, issues); err != nil {
		return upserted, err
	}
	return upserted, nil
}

// benchmarkStatus re-derives the record status: an unknown stated status
// resets to VALID, and VALID downgrades to PARTIAL when any bound is missing.
func benchmarkStatus(row *normalize.BenchmarkInput) string {
	status := row.RecordStatus
	switch status {
	case domain.BenchmarkStatusValid, domain.BenchmarkStatusPartial, domain.BenchmarkStatusInvalid:
	default:
		status = domain.BenchmarkStatusValid
	}
	if status == domain.BenchmarkStatusValid && (row.Open == nil || row.High == nil || row.Low == nil) {
		status = domain.BenchmarkStatusPartial
	}
	return status
}

func checkBenchmarkOHLC(row *normalize.BenchmarkInput) string {
	open, high, low, close := *row.Open, *row.High, *row.Low, *row.Close
	if high < max(open, close, low) {
		return "high is inconsistent"
	}
	if low > min(open, close, high) {
		return "low is inconsistent"
	}
	return ""
}

// sweepMissingDays flags every contiguous calendar day absent from a series
// spanning at least two distinct dates.
func (c *BenchmarkCollector) sweepMissingDays(seriesDates map[seriesKey]map[time.Time]bool, source string, now time.Time, runID *uuid.UUID) []*domain.DataQualityIssue {
	var issues []*domain.DataQualityIssue

	keys := make([]seriesKey, 0, len(seriesDates))
	for key := range seriesDates {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].indexCode != keys[j].indexCode {
			return keys[i].indexCode < keys[j].indexCode
		}
		return keys[i].indexName < keys[j].indexName
	})

	for _, key := range keys {
		dates := seriesDates[key]
		if len(dates) < 2 {
			continue
		}

		var minDate, maxDate time.Time
		for d := range dates {
			if minDate.IsZero() || d.Before(minDate) {
				minDate = d
			}
			if d.After(maxDate) {
				maxDate = d
			}
		}

		indexCode := key.indexCode
		for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
			if dates[d] {
				continue
			}
			missing := d
			issues = append(issues, domain.NewIssue(
				domain.DatasetBenchmark, domain.IssueBenchmarkDayMissing, domain.SeverityWarn, source, now,
				domain.IssueOpts{
					IndexCode: &indexCode,
					TradeDate: &missing,
					RunID:     runID,
					Detail:    fmt.Sprintf("missing benchmark day for %s/%s", key.indexCode, key.indexName),
				},
			))
		}
	}
	return issues
}
