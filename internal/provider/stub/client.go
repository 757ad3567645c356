// Package stub implements provider.Client over in-memory fixtures.
package stub

import (
	"context"
	"strings"
	"time"

	"krx-market-lab/internal/provider"
)

func key(code string, date time.Time) string {
	return strings.ToUpper(code) + "|" + date.Format("2006-01-02")
}

// Client implements provider.Client for tests and fixture-driven runs.
// Payloads are keyed by market/index code and date; a missing key returns an
// empty payload, mirroring the live API's empty OutBlock for no-data days.
type Client struct {
	InstrumentPayloads map[string]any
	DailyPayloads      map[string]any
	IndexPayloads      map[string]any

	// Err, when set, is returned by every call.
	Err error
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		InstrumentPayloads: make(map[string]any),
		DailyPayloads:      make(map[string]any),
		IndexPayloads:      make(map[string]any),
	}
}

// SetInstruments seeds the instrument payload for one market and date.
func (c *Client) SetInstruments(marketCode string, date time.Time, payload any) {
	c.InstrumentPayloads[key(marketCode, date)] = payload
}

// SetDailyMarket seeds the daily payload for one market and date.
func (c *Client) SetDailyMarket(marketCode string, date time.Time, payload any) {
	c.DailyPayloads[key(marketCode, date)] = payload
}

// SetIndexDaily seeds the index payload for one index code and date.
func (c *Client) SetIndexDaily(indexCode string, date time.Time, payload any) {
	c.IndexPayloads[key(indexCode, date)] = payload
}

// Instruments returns the seeded instrument payload.
func (c *Client) Instruments(_ context.Context, marketCode string, baseDate time.Time) (any, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return emptyIfMissing(c.InstrumentPayloads[key(marketCode, baseDate)]), nil
}

// DailyMarket returns the seeded daily payload.
func (c *Client) DailyMarket(_ context.Context, marketCode string, tradeDate time.Time) (any, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return emptyIfMissing(c.DailyPayloads[key(marketCode, tradeDate)]), nil
}

// IndexDaily returns the seeded index payload.
func (c *Client) IndexDaily(_ context.Context, indexCode string, tradeDate time.Time) (any, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return emptyIfMissing(c.IndexPayloads[key(indexCode, tradeDate)]), nil
}

func emptyIfMissing(payload any) any {
	if payload == nil {
		return map[string]any{"OutBlock_1": []any{}}
	}
	return payload
}

var _ provider.Client = (*Client)(nil)

// Rows wraps records into the live API's envelope shape.
func Rows(records ...map[string]any) map[string]any {
	list := make([]any, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	return map[string]any{"OutBlock_1": list}
}
