// Package provider is the market-data edge: it fetches raw daily payloads
// from the exchange OpenAPI. Payloads are returned undecoded beyond JSON so
// the normalization layer owns all field interpretation.
package provider

import (
	"context"
	"errors"
	"time"
)

// Client fetches raw provider payloads for one base date.
type Client interface {
	// Instruments fetches the instrument master records of a market.
	Instruments(ctx context.Context, marketCode string, baseDate time.Time) (any, error)

	// DailyMarket fetches the daily trade records of a market.
	DailyMarket(ctx context.Context, marketCode string, tradeDate time.Time) (any, error)

	// IndexDaily fetches the daily index records for an index code.
	IndexDaily(ctx context.Context, indexCode string, tradeDate time.Time) (any, error)
}

// Provider errors.
var (
	// ErrDailyLimitExceeded is returned once the configured per-day call
	// budget is spent; the caller decides whether to resume tomorrow.
	ErrDailyLimitExceeded = errors.New("provider daily call limit exceeded")

	// ErrUnknownMarket is returned for a market code without an endpoint mapping.
	ErrUnknownMarket = errors.New("unknown market code")

	// ErrUnknownIndex is returned for an index code without an endpoint mapping.
	ErrUnknownIndex = errors.New("unknown index code")
)
