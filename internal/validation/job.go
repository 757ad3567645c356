// Package validation is the post-hoc audit layer: it re-scans rows already
// persisted for a market and window, independent of the collectors' inline
// gates, so rows written by any other path still get checked.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/observability"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage"
)

// SourceName stamps every audit finding, keeping them distinguishable from
// the collectors' inline rejections.
const SourceName = "validation"

// Result classifies one validation pass by severity. The run manager
// consumes Errors and Warnings to derive the terminal run status.
type Result struct {
	IssuesTotal int
	Errors      int
	Warnings    int
	Infos       int
	RowsChecked int
}

// Job audits persisted daily rows against the trading calendar.
type Job struct {
	daily    storage.DailyMarketStore
	calendar storage.CalendarStore
	issues   storage.IssueStore
	runs     storage.RunStore
}

// NewJob creates a validation job.
func NewJob(daily storage.DailyMarketStore, calendar storage.CalendarStore, issues storage.IssueStore, runStore storage.RunStore) *Job {
	return &Job{daily: daily, calendar: calendar, issues: issues, runs: runStore}
}

// ValidateRange audits all daily rows of a market within [from, to] plus the
// open days of its calendar, inserts every finding in one batch and returns
// the severity-classified tally.
func (j *Job) ValidateRange(ctx context.Context, marketCode string, from, to time.Time, runID *uuid.UUID) (*Result, error) {
	now := time.Now().UTC()
	resolvedRun := runs.ResolveExisting(ctx, j.runs, runID)

	rows, err := j.daily.GetByMarketRange(ctx, marketCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("validate %s: scan daily rows: %w", marketCode, err)
	}

	var found []*domain.DataQualityIssue
	daysWithRows := make(map[time.Time]bool)

	for _, row := range rows {
		daysWithRows[row.TradeDate] = true
		found = append(found, auditDailyRow(row, now, resolvedRun)...)
	}

	// Total-outage check: every calendar-open day must have at least one
	// daily row for the market.
	openDays, err := j.calendar.OpenDays(ctx, marketCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("validate %s: read calendar: %w", marketCode, err)
	}
	for _, d := range openDays {
		if daysWithRows[d] {
			continue
		}
		missing := d
		found = append(found, domain.NewIssue(
			domain.DatasetDailyMarket, domain.IssueOpenDayTotalMissing, domain.SeverityWarn, SourceName, now,
			domain.IssueOpts{
				TradeDate: &missing,
				RunID:     resolvedRun,
				Detail:    fmt.Sprintf("no daily rows for %s on open day %s", marketCode, d.Format("2006-01-02")),
			},
		))
	}

	for _, issue := range found {
		if err := j.issues.Insert(ctx, issue); err != nil {
			return nil, fmt.Errorf("validate %s: insert issue %s: %w", marketCode, issue.IssueCode, err)
		}
		observability.RecordIssue(issue.Severity)
	}

	result := &Result{IssuesTotal: len(found), RowsChecked: len(rows)}
	for _, issue := range found {
		switch issue.Severity {
		case domain.SeverityError:
			result.Errors++
		case domain.SeverityWarn:
			result.Warnings++
		default:
			result.Infos++
		}
	}
	return result, nil
}

// auditDailyRow re-checks one persisted bar. Halted rows are exempt from the
// OHLC bound checks; the non-negativity checks always apply.
func auditDailyRow(row *domain.DailyMarketRow, now time.Time, runID *uuid.UUID) []*domain.DataQualityIssue {
	var found []*domain.DataQualityIssue
	add := func(code, detail string) {
		instrumentID := row.InstrumentID
		tradeDate := row.TradeDate
		found = append(found, domain.NewIssue(
			domain.DatasetDailyMarket, code, domain.SeverityError, SourceName, now,
			domain.IssueOpts{InstrumentID: &instrumentID, TradeDate: &tradeDate, RunID: runID, Detail: detail},
		))
	}

	if !row.IsTradeHalted {
		if row.High < max(row.Open, row.Close, row.Low) {
			add(domain.IssueOHLCHighInconsistent, fmt.Sprintf("high %g below max(open, close, low)", row.High))
		}
		if row.Low > min(row.Open, row.Close, row.High) {
			add(domain.IssueOHLCLowInconsistent, fmt.Sprintf("low %g above min(open, close, high)", row.Low))
		}
	}
	if row.Volume < 0 {
		add(domain.IssueNegativeVolume, fmt.Sprintf("volume %d", row.Volume))
	}
	if row.TurnoverValue != nil && *row.TurnoverValue < 0 {
		add(domain.IssueNegativeTurnover, fmt.Sprintf("turnover_value %g", *row.TurnoverValue))
	}
	if row.MarketValue != nil && *row.MarketValue < 0 {
		add(domain.IssueNegativeMarketValue, fmt.Sprintf("market_value %g", *row.MarketValue))
	}
	return found
}
