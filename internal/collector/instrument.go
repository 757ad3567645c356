package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/normalize"
	"krx-market-lab/internal/storage"
)

// InstrumentCollector upserts normalized instrument master rows.
type InstrumentCollector struct {
	instruments storage.InstrumentStore
	issues      storage.IssueStore
}

// NewInstrumentCollector creates an instrument collector.
func NewInstrumentCollector(instruments storage.InstrumentStore, issues storage.IssueStore) *InstrumentCollector {
	return &InstrumentCollector{instruments: instruments, issues: issues}
}

// Collect validates and upserts instrument rows, returning the upserted
// count. Rows whose dates fail strict coercion are dropped with a
// DATE_NORMALIZATION_FAILED warning; the batch continues.
func (c *InstrumentCollector) Collect(ctx context.Context, rows []normalize.InstrumentRow, source string) (int, error) {
	now := time.Now().UTC()
	var issues []*domain.DataQualityIssue
	upserted := 0

	for _, row := range rows {
		// TODO(issue gap): structurally broken rows are skipped without an
		// issue record; whether they deserve one is an open product call.
		if row.InstrumentID == "" || row.ExternalCode == "" || row.MarketCode == "" || row.ListingDate == "" {
			continue
		}
		instrumentID, err := uuid.Parse(row.InstrumentID)
		if err != nil {
			continue
		}

		listingDate, err := parseISODate(row.ListingDate)
		if err != nil {
			issues = append(issues, domain.NewIssue(
				domain.DatasetInstruments, domain.IssueDateNormalizationFailed, domain.SeverityWarn, source, now,
				domain.IssueOpts{InstrumentID: &instrumentID, Detail: fmt.Sprintf("listing_date: %v", err)},
			))
			continue
		}
		var delistingDate *time.Time
		if row.DelistingDate != "" {
			d, err := parseISODate(row.DelistingDate)
			if err != nil {
				issues = append(issues, domain.NewIssue(
					domain.DatasetInstruments, domain.IssueDateNormalizationFailed, domain.SeverityWarn, source, now,
					domain.IssueOpts{InstrumentID: &instrumentID, Detail: fmt.Sprintf("delisting_date: %v", err)},
				))
				continue
			}
			delistingDate = &d
		}

		inst := &domain.Instrument{
			InstrumentID:  instrumentID,
			ExternalCode:  row.ExternalCode,
			MarketCode:    row.MarketCode,
			Name:          row.Name,
			NameAbbr:      textPtr(row.NameAbbr),
			NameEng:       textPtr(row.NameEng),
			ListingDate:   listingDate,
			DelistingDate: delistingDate,
			ListedShares:  row.ListedShares,
			SecurityGroup: textPtr(row.SecurityGroup),
			SectorName:    textPtr(row.SectorName),
			StockType:     textPtr(row.StockType),
			ParValue:      row.ParValue,
			SourceName:    source,
			CollectedAt:   now,
		}
		if err := c.instruments.Upsert(ctx, inst); err != nil {
			return upserted, fmt.Errorf("upsert instrument %s: %w", row.ExternalCode, err)
		}
		upserted++
	}

	if err := insertIssues(ctx, c.issues, issues); err != nil {
		return upserted, err
	}
	return upserted, nil
}
