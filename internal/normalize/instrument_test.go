package normalize

import (
	"testing"

	"krx-market-lab/internal/idhash"
)

func TestInstruments(t *testing.T) {
	rows := []Row{
		{
			"ISU_SRT_CD": "A005930",
			"ISU_NM":     "삼성전자",
			"ISU_ABBRV":  "삼성전자",
			"ISU_ENG_NM": "SamsungElec",
			"LIST_DD":    "19750611",
			"LIST_SHRS":  "5,969,782,550",
			"SECUGRP_NM": "주권",
			"PARVAL":     "100",
		},
		// no resolvable code: dropped
		{"ISU_NM": "ghost", "LIST_DD": "20200101"},
		// no listing date: dropped
		{"ISU_SRT_CD": "000660", "ISU_NM": "SK하이닉스"},
	}

	got := Instruments(rows, "KOSPI")
	if len(got) != 1 {
		t.Fatalf("got %d instruments, want 1", len(got))
	}

	inst := got[0]
	if inst.ExternalCode != "005930" {
		t.Errorf("external code = %q", inst.ExternalCode)
	}
	if inst.MarketCode != "KOSPI" {
		t.Errorf("market code = %q", inst.MarketCode)
	}
	if want := idhash.InstrumentID("KOSPI", "005930").String(); inst.InstrumentID != want {
		t.Errorf("instrument id = %q, want %q", inst.InstrumentID, want)
	}
	if inst.ListingDate != "1975-06-11" {
		t.Errorf("listing date = %q", inst.ListingDate)
	}
	if inst.DelistingDate != "" {
		t.Errorf("delisting date = %q, want empty", inst.DelistingDate)
	}
	if inst.ListedShares == nil || *inst.ListedShares != 5969782550 {
		t.Errorf("listed shares = %v", inst.ListedShares)
	}
	if inst.ParValue == nil || *inst.ParValue != 100 {
		t.Errorf("par value = %v", inst.ParValue)
	}
}

func TestInstrumentsNameFallsBackToCode(t *testing.T) {
	rows := []Row{{"ISU_SRT_CD": "005930", "LIST_DD": "20200102"}}
	got := Instruments(rows, "KOSPI")
	if len(got) != 1 {
		t.Fatalf("got %d instruments, want 1", len(got))
	}
	if got[0].Name != "005930" {
		t.Errorf("name = %q, want code fallback", got[0].Name)
	}
}
