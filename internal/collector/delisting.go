package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/runs"
	"krx-market-lab/internal/storage"
)

// DelistingCollector applies delisting-feed notices onto the instrument
// master and mirrors the feed into the snapshot table.
type DelistingCollector struct {
	instruments storage.InstrumentStore
	snapshots   storage.DelistingStore
	issues      storage.IssueStore
	runs        storage.RunStore
}

// NewDelistingCollector creates a delisting collector.
func NewDelistingCollector(instruments storage.InstrumentStore, snapshots storage.DelistingStore, issues storage.IssueStore, runStore storage.RunStore) *DelistingCollector {
	return &DelistingCollector{instruments: instruments, snapshots: snapshots, issues: issues, runs: runStore}
}

// DelistingResult tallies one Apply call.
type DelistingResult struct {
	Matched   int // notices resolving to a master row
	Updated   int // master rows that got a new delisting date
	Unchanged int // master rows already carrying the same date
	Unmatched int // notices for symbols outside current coverage
	Invalid   int // notices rejected outright
}

// Apply walks the delisting notices, updates matching instruments and
// upserts the feed snapshot. The snapshot is written even for unmatched
// symbols: the feed covers historical codes the master never carried.
func (c *DelistingCollector) Apply(ctx context.Context, notices []domain.DelistingNotice, source string, runID *uuid.UUID) (*DelistingResult, error) {
	now := time.Now().UTC()
	resolvedRun := runs.ResolveExisting(ctx, c.runs, runID)

	result := &DelistingResult{}
	var issues []*domain.DataQualityIssue

	for _, notice := range notices {
		code, ok := normalize.InstrumentCode(notice.ExternalCode)
		if !ok || notice.MarketCode == "" || notice.DelistingDate.IsZero() {
			result.Invalid++
			issues = append(issues, domain.NewIssue(
				domain.DatasetInstruments, domain.IssueDelistingRowInvalid, domain.SeverityError, source, now,
				domain.IssueOpts{RunID: resolvedRun, Detail: fmt.Sprintf("market=%s code=%s", notice.MarketCode, notice.ExternalCode)},
			))
			continue
		}

		instrumentID := idhash.InstrumentID(notice.MarketCode, code)
		inst, err := c.instruments.GetByID(ctx, instrumentID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			result.Unmatched++
		case err != nil:
			return result, fmt.Errorf("lookup instrument %s/%s: %w", notice.MarketCode, code, err)
		default:
			result.Matched++
			applied, issue := c.applyToMaster(ctx, inst, notice.DelistingDate, source, now, resolvedRun)
			if issue != nil {
				result.Invalid++
				issues = append(issues, issue)
				continue
			}
			if applied {
				result.Updated++
			} else {
				result.Unchanged++
			}
		}

		snapshot := &domain.DelistingSnapshotRow{
			MarketCode:    notice.MarketCode,
			ExternalCode:  code,
			DelistingDate: notice.DelistingDate,
			Reason:        notice.Reason,
			Note:          notice.Note,
			SourceName:    source,
			CollectedAt:   now,
			RunID:         resolvedRun,
		}
		if err := c.snapshots.Upsert(ctx, snapshot); err != nil {
			return result, fmt.Errorf("upsert delisting snapshot %s/%s: %w", notice.MarketCode, code, err)
		}
	}

	if err := insertIssues(ctx, c.issues, issues); err != nil {
		return result, err
	}
	return result, nil
}

func (c *DelistingCollector) applyToMaster(ctx context.Context, inst *domain.Instrument, delistingDate time.Time, source string, now time.Time, runID *uuid.UUID) (bool, *domain.DataQualityIssue) {
	if delistingDate.Before(inst.ListingDate) {
		return false, domain.NewIssue(
			domain.DatasetInstruments, domain.IssueDelistingBeforeListing, domain.SeverityError, source, now,
			domain.IssueOpts{
				InstrumentID: &inst.InstrumentID,
				RunID:        runID,
				Detail: fmt.Sprintf("delisting %s before listing %s",
					delistingDate.Format(isoDate), inst.ListingDate.Format(isoDate)),
			},
		)
	}
	if inst.DelistingDate != nil && inst.DelistingDate.Equal(delistingDate) {
		return false, nil
	}
	if err := c.instruments.UpdateDelisting(ctx, inst.InstrumentID, delistingDate); err != nil {
		// Master row vanished between lookup and update; treat as unchanged.
		return false, nil
	}
	return true, nil
}
