// Package collector turns normalized provider rows into persisted canonical
// rows. Each collector is one batched read-then-write: rows that fail its
// checks are dropped and recorded as data-quality issues, rows that pass are
// upserted. A collector call never aborts on a row-level rejection; only
// storage failures propagate.
package collector

import (
	"context"
	"fmt"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/observability"
	"krx-market-lab/internal/storage"
)

const isoDate = "2006-01-02"

func parseISODate(value string) (time.Time, error) {
	d, err := time.Parse(isoDate, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", value)
	}
	return d, nil
}

// insertIssues writes the batch of issues accumulated by one collector call.
func insertIssues(ctx context.Context, store storage.IssueStore, issues []*domain.DataQualityIssue) error {
	for _, issue := range issues {
		if err := store.Insert(ctx, issue); err != nil {
			return fmt.Errorf("insert issue %s: %w", issue.IssueCode, err)
		}
		observability.RecordIssue(issue.Severity)
	}
	return nil
}

func textPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
