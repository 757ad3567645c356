package normalize

import (
	"testing"

	"krx-market-lab/internal/domain"
)

func TestBenchmark(t *testing.T) {
	rows := []Row{{
		"IDX_NM":        "코스피",
		"OPNPRC_IDX":    "2,650.12",
		"HGPRC_IDX":     "2,671.45",
		"LWPRC_IDX":     "2,640.03",
		"CLSPRC_IDX":    "2,669.81",
		"ACC_TRDVOL":    "450,123,000",
		"ACC_TRDVAL":    "9,876,543,210,000",
		"CMPPREVDD_IDX": "19.69",
		"FLUC_RT":       "0.74",
	}}

	got := Benchmark(rows, "kospi", testTradeDate)
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}

	point := got[0]
	if point.IndexCode != "KOSPI" {
		t.Errorf("index code = %q, want upper-cased", point.IndexCode)
	}
	if point.IndexName != "코스피" {
		t.Errorf("index name = %q", point.IndexName)
	}
	if point.Close == nil || *point.Close != 2669.81 {
		t.Errorf("close = %v", point.Close)
	}
	if point.RawClose == nil || *point.RawClose != "2,669.81" {
		t.Errorf("raw close = %v", point.RawClose)
	}
	if point.RecordStatus != domain.BenchmarkStatusValid {
		t.Errorf("record status = %q", point.RecordStatus)
	}
}

func TestBenchmarkPartialWhenBoundsMissing(t *testing.T) {
	rows := []Row{{
		"CLSPRC_IDX": "2,669.81",
		"OPNPRC_IDX": "-",
	}}

	got := Benchmark(rows, "KOSPI", testTradeDate)
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}

	point := got[0]
	if point.RecordStatus != domain.BenchmarkStatusPartial {
		t.Errorf("record status = %q, want PARTIAL", point.RecordStatus)
	}
	if point.Open != nil {
		t.Errorf("open = %v, want nil", *point.Open)
	}
	if point.RawOpen == nil || *point.RawOpen != "-" {
		t.Errorf("raw open placeholder lost: %v", point.RawOpen)
	}
	if point.IndexName != "KOSPI" {
		t.Errorf("index name = %q, want index code fallback", point.IndexName)
	}
}

func TestBenchmarkDropsRowsWithoutClose(t *testing.T) {
	rows := []Row{
		{"OPNPRC_IDX": "2,650.12", "HGPRC_IDX": "2,671.45"},
		{"CLSPRC_IDX": "-"},
	}
	if got := Benchmark(rows, "KOSPI", testTradeDate); len(got) != 0 {
		t.Fatalf("got %d rows, want 0", len(got))
	}
}
