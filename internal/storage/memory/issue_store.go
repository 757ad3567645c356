package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// IssueStore is an in-memory implementation of storage.IssueStore.
type IssueStore struct {
	mu   sync.RWMutex
	data []*domain.DataQualityIssue // append-only
}

// NewIssueStore creates a new in-memory issue store.
func NewIssueStore() *IssueStore {
	return &IssueStore{}
}

// Insert adds a new issue row.
func (s *IssueStore) Insert(_ context.Context, issue *domain.DataQualityIssue) error {
	if issue == nil || issue.DatasetName == "" || issue.IssueCode == "" || issue.Severity == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *issue
	s.data = append(s.data, &copy)
	return nil
}

// ListByDateRange retrieves issues whose trade_date falls within [from, to],
// plus dateless issues detected within the same window, ordered by detected_at ASC.
func (s *IssueStore) ListByDateRange(_ context.Context, from, to time.Time) ([]*domain.DataQualityIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataQualityIssue
	for _, issue := range s.data {
		keep := false
		if issue.TradeDate != nil {
			keep = !issue.TradeDate.Before(from) && !issue.TradeDate.After(to)
		} else {
			keep = !issue.DetectedAt.Before(from) && issue.DetectedAt.Before(to.AddDate(0, 0, 1))
		}
		if keep {
			copy := *issue
			result = append(result, &copy)
		}
	}

	sortIssues(result)
	return result, nil
}

// ListByRunID retrieves all issues recorded under one run, ordered by detected_at ASC.
func (s *IssueStore) ListByRunID(_ context.Context, runID uuid.UUID) ([]*domain.DataQualityIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataQualityIssue
	for _, issue := range s.data {
		if issue.RunID != nil && *issue.RunID == runID {
			copy := *issue
			result = append(result, &copy)
		}
	}

	sortIssues(result)
	return result, nil
}

func sortIssues(issues []*domain.DataQualityIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].DetectedAt.Before(issues[j].DetectedAt)
	})
}

var _ storage.IssueStore = (*IssueStore)(nil)
