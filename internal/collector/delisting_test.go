package collector

import (
	"context"
	"testing"
	"time"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/idhash"
)

func seedInstrument(t *testing.T, f *fixture, marketCode, externalCode, listingDate string) *domain.Instrument {
	t.Helper()
	inst := &domain.Instrument{
		InstrumentID: idhash.InstrumentID(marketCode, externalCode),
		ExternalCode: externalCode,
		MarketCode:   marketCode,
		Name:         externalCode,
		ListingDate:  day(listingDate),
		SourceName:   "test",
		CollectedAt:  time.Now().UTC(),
	}
	if err := f.instruments.Upsert(context.Background(), inst); err != nil {
		t.Fatalf("seed instrument failed: %v", err)
	}
	return inst
}

func TestDelistingCollector_Apply(t *testing.T) {
	f := newFixture()
	c := NewDelistingCollector(f.instruments, f.snapshots, f.issues, f.runs)
	ctx := context.Background()

	seedInstrument(t, f, "KOSPI", "003480", "2000-05-02")

	notices := []domain.DelistingNotice{
		{MarketCode: "KOSPI", ExternalCode: "A003480", DelistingDate: day("2025-12-30")},
		{MarketCode: "KOSPI", ExternalCode: "999999", DelistingDate: day("2025-12-30")}, // not in master
		{MarketCode: "KOSPI", ExternalCode: "??"},                                      // invalid
	}
	result, err := c.Apply(ctx, notices, "kind", nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if result.Matched != 1 || result.Updated != 1 || result.Unmatched != 1 || result.Invalid != 1 {
		t.Errorf("result = %+v", result)
	}

	inst, _ := f.instruments.GetByID(ctx, idhash.InstrumentID("KOSPI", "003480"))
	if inst.DelistingDate == nil || !inst.DelistingDate.Equal(day("2025-12-30")) {
		t.Errorf("master not updated: %v", inst.DelistingDate)
	}

	// Snapshot rows are written for matched and unmatched notices alike.
	snaps, _ := f.snapshots.GetByMarket(ctx, "KOSPI")
	if len(snaps) != 2 {
		t.Errorf("Expected 2 snapshot rows, got %d", len(snaps))
	}
	if len(f.issuesByCode(t, domain.IssueDelistingRowInvalid)) != 1 {
		t.Error("Expected 1 DELISTING_ROW_INVALID issue")
	}
}

func TestDelistingCollector_UnchangedDate(t *testing.T) {
	f := newFixture()
	c := NewDelistingCollector(f.instruments, f.snapshots, f.issues, f.runs)
	ctx := context.Background()

	inst := seedInstrument(t, f, "KOSPI", "003480", "2000-05-02")
	delisted := day("2025-12-30")
	if err := f.instruments.UpdateDelisting(ctx, inst.InstrumentID, delisted); err != nil {
		t.Fatalf("seed delisting failed: %v", err)
	}

	notices := []domain.DelistingNotice{
		{MarketCode: "KOSPI", ExternalCode: "003480", DelistingDate: delisted},
	}
	result, err := c.Apply(ctx, notices, "kind", nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Matched != 1 || result.Unchanged != 1 || result.Updated != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestDelistingCollector_DateBeforeListingRejected(t *testing.T) {
	f := newFixture()
	c := NewDelistingCollector(f.instruments, f.snapshots, f.issues, f.runs)
	ctx := context.Background()

	seedInstrument(t, f, "KOSPI", "003480", "2000-05-02")

	notices := []domain.DelistingNotice{
		{MarketCode: "KOSPI", ExternalCode: "003480", DelistingDate: day("1999-01-01")},
	}
	result, err := c.Apply(ctx, notices, "kind", nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.Invalid != 1 || result.Updated != 0 {
		t.Errorf("result = %+v", result)
	}

	inst, _ := f.instruments.GetByID(ctx, idhash.InstrumentID("KOSPI", "003480"))
	if inst.DelistingDate != nil {
		t.Errorf("master must not carry an impossible delisting date: %v", inst.DelistingDate)
	}
	if len(f.issuesByCode(t, domain.IssueDelistingBeforeListing)) != 1 {
		t.Error("Expected 1 DELISTING_DATE_BEFORE_LISTING_DATE issue")
	}
}
