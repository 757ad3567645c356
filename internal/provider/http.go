package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"krx-market-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "http://data-dbg.krx.co.kr/svc/apis"
	DefaultTimeout     = 20 * time.Second
	DefaultMaxRetries  = 5
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultBackoffMult = 2.0
	DefaultDailyLimit  = 10000
)

// Per-market endpoint paths, instrument master and daily trade.
var (
	instrumentPaths = map[string]string{
		"KOSPI":  "sto/stk_isu_base_info",
		"KOSDAQ": "sto/ksq_isu_base_info",
		"KONEX":  "sto/knx_isu_base_info",
	}
	dailyPaths = map[string]string{
		"KOSPI":  "sto/stk_bydd_trd",
		"KOSDAQ": "sto/ksq_bydd_trd",
		"KONEX":  "sto/knx_bydd_trd",
	}
	indexPaths = map[string]string{
		"KRX":    "idx/krx_dd_trd",
		"KOSPI":  "idx/kospi_dd_trd",
		"KOSDAQ": "idx/kosdaq_dd_trd",
	}
)

// HTTPClient implements Client over the exchange OpenAPI.
type HTTPClient struct {
	baseURL     string
	authKey     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	dailyLimit  int64
	callCount   atomic.Int64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithDailyLimit caps the number of calls per client instance.
func WithDailyLimit(n int) ClientOption {
	return func(c *HTTPClient) {
		c.dailyLimit = int64(n)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates an exchange OpenAPI client.
func NewHTTPClient(authKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     DefaultBaseURL,
		authKey:     authKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		dailyLimit:  DefaultDailyLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Instruments fetches the instrument master records of a market.
func (c *HTTPClient) Instruments(ctx context.Context, marketCode string, baseDate time.Time) (any, error) {
	path, ok := instrumentPaths[strings.ToUpper(marketCode)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, marketCode)
	}
	return c.get(ctx, path, baseDate)
}

// DailyMarket fetches the daily trade records of a market.
func (c *HTTPClient) DailyMarket(ctx context.Context, marketCode string, tradeDate time.Time) (any, error) {
	path, ok := dailyPaths[strings.ToUpper(marketCode)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, marketCode)
	}
	return c.get(ctx, path, tradeDate)
}

// IndexDaily fetches the daily index records for an index code.
func (c *HTTPClient) IndexDaily(ctx context.Context, indexCode string, tradeDate time.Time) (any, error) {
	path, ok := indexPaths[strings.ToUpper(indexCode)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, indexCode)
	}
	return c.get(ctx, path, tradeDate)
}

func (c *HTTPClient) get(ctx context.Context, path string, baseDate time.Time) (any, error) {
	started := time.Now()
	payload, err := c.doGet(ctx, path, baseDate)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.RecordProviderRequest(path, outcome, time.Since(started).Seconds())
	return payload, err
}

// doGet performs one API call with retries and exponential backoff. Transient
// transport failures and 429/5xx responses are retried; other HTTP errors
// are not.
func (c *HTTPClient) doGet(ctx context.Context, path string, baseDate time.Time) (any, error) {
	if c.callCount.Add(1) > c.dailyLimit {
		return nil, ErrDailyLimitExceeded
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path,
		url.Values{"basDd": {baseDate.Format("20060102")}}.Encode())

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("AUTH_KEY", c.authKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("transient status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return payload, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

var _ Client = (*HTTPClient)(nil)
