package domain

import (
	"time"

	"github.com/google/uuid"
)

// Instrument is one listed security in the instrument master.
// Corresponds to the instruments table in PostgreSQL.
// Identity is (market_code, external_code); InstrumentID is a deterministic
// surrogate derived from that pair, so repeated collection cycles upsert the
// same row without a lookup.
type Instrument struct {
	InstrumentID  uuid.UUID
	ExternalCode  string
	MarketCode    string
	Name          string
	NameAbbr      *string
	NameEng       *string
	ListingDate   time.Time
	DelistingDate *time.Time // nil while listed; never deletes the row
	ListedShares  *int64
	SecurityGroup *string
	SectorName    *string
	StockType     *string
	ParValue      *float64
	SourceName    string
	CollectedAt   time.Time
	UpdatedAt     *time.Time
}
