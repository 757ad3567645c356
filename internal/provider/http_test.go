package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testDate = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

func TestHTTPClient_DailyMarket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sto/stk_bydd_trd" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("basDd"); got != "20260102" {
			t.Errorf("basDd = %s", got)
		}
		if got := r.Header.Get("AUTH_KEY"); got != "secret" {
			t.Errorf("AUTH_KEY = %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"OutBlock_1": []any{
				map[string]any{"ISU_CD": "A005930", "TDD_CLSPRC": "71,200"},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient("secret", WithBaseURL(server.URL))
	payload, err := client.DailyMarket(context.Background(), "KOSPI", testDate)
	if err != nil {
		t.Fatalf("DailyMarket: %v", err)
	}

	envelope, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", payload)
	}
	rows, ok := envelope["OutBlock_1"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("envelope = %v", envelope)
	}
}

func TestHTTPClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"OutBlock_1": []any{}})
	}))
	defer server.Close()

	client := NewHTTPClient("secret",
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)

	if _, err := client.IndexDaily(context.Background(), "KOSPI", testDate); err != nil {
		t.Fatalf("IndexDaily: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPClient_NonTransientStatusNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient("bad-key", WithBaseURL(server.URL), WithRetryDelay(time.Millisecond))
	if _, err := client.Instruments(context.Background(), "KOSPI", testDate); err == nil {
		t.Fatal("Expected error for 401")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on auth failure)", calls.Load())
	}
}

func TestHTTPClient_DailyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"OutBlock_1": []any{}})
	}))
	defer server.Close()

	client := NewHTTPClient("secret", WithBaseURL(server.URL), WithDailyLimit(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.DailyMarket(ctx, "KOSPI", testDate); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	_, err := client.DailyMarket(ctx, "KOSPI", testDate)
	if !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("Expected ErrDailyLimitExceeded, got %v", err)
	}
}

func TestHTTPClient_UnknownCodes(t *testing.T) {
	client := NewHTTPClient("secret")
	ctx := context.Background()

	if _, err := client.DailyMarket(ctx, "NASDAQ", testDate); !errors.Is(err, ErrUnknownMarket) {
		t.Errorf("unknown market: got %v", err)
	}
	if _, err := client.IndexDaily(ctx, "SP500", testDate); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("unknown index: got %v", err)
	}
}
