package domain

import (
	"time"

	"github.com/google/uuid"
)

// DelistingNotice is one row from the delisting feed before it is applied to
// the instrument master.
type DelistingNotice struct {
	MarketCode    string
	ExternalCode  string
	DelistingDate time.Time
	Reason        *string
	Note          *string
}

// DelistingSnapshotRow mirrors the latest delisting feed state per
// (market_code, external_code), kept independently of the instrument master
// because the feed covers historical symbols outside current coverage.
type DelistingSnapshotRow struct {
	MarketCode    string
	ExternalCode  string
	DelistingDate time.Time
	Reason        *string
	Note          *string
	SourceName    string
	CollectedAt   time.Time
	UpdatedAt     *time.Time
	RunID         *uuid.UUID
}
