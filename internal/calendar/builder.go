// Package calendar derives a per-market trading calendar from observed
// benchmark data. A day is open iff the benchmark feed produced at least one
// point for it; this is an inferred calendar, not an authoritative one.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage"
)

// Builder writes trading calendar rows.
type Builder struct {
	calendar storage.CalendarStore
	runs     storage.RunStore
}

// NewBuilder creates a calendar builder.
func NewBuilder(calendar storage.CalendarStore, runStore storage.RunStore) *Builder {
	return &Builder{calendar: calendar, runs: runStore}
}

// BuildFromIndexDays upserts one calendar row per day in [from, to]
// inclusive, open on the days present in indexDays. Closed days carry the
// fixed sentinel label instead of a real holiday name.
func (b *Builder) BuildFromIndexDays(ctx context.Context, marketCode string, from, to time.Time, indexDays []time.Time, source string, runID *uuid.UUID) (int, error) {
	if to.Before(from) {
		return 0, fmt.Errorf("build calendar: range end %s before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	resolvedRun := runs.ResolveExisting(ctx, b.runs, runID)
	now := time.Now().UTC()

	openDays := make(map[time.Time]bool, len(indexDays))
	for _, d := range indexDays {
		openDays[time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)] = true
	}

	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		row := &domain.TradingCalendarRow{
			MarketCode:  marketCode,
			TradeDate:   d,
			IsOpen:      openDays[d],
			SourceName:  source,
			CollectedAt: now,
			RunID:       resolvedRun,
		}
		if !row.IsOpen {
			label := domain.ClosedDayLabel
			row.HolidayName = &label
		}
		if err := b.calendar.Upsert(ctx, row); err != nil {
			return count, fmt.Errorf("upsert calendar day %s/%s: %w", marketCode, d.Format("2006-01-02"), err)
		}
		count++
	}
	return count, nil
}
