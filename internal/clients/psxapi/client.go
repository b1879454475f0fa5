// Package psxapi provides a client for the PSX historical equities API
package psxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/interfaces"
	"github.com/psxlabs/psxgo/internal/models"
)

const (
	DefaultBaseURL   = "https://dps.psx.com.pk"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// primaryPath is tried first; on 404 the request is retried once at
	// legacyPath with identical parameters.
	primaryPath = "/api/historical/equities"
	legacyPath  = "/api/historical"

	sourceName = "psxapi"
)

// Client implements the RangeSource interface against the PSX equities API.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new PSX API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetHistory retrieves daily bars for a symbol across a date range.
//
// The primary endpoint path is tried first; a 404 triggers one retry against
// the legacy path. 401 is terminal for the run — the API considers this
// client unauthorized and retrying elsewhere will not change that. The body
// is either a JSON tuple payload or a rendered HTML page; both parse into the
// same bar schema. An empty payload is an empty result, not an error.
func (c *Client) GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.ConnectionError(sourceName, "rate limit wait", err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", r.Start.Format("2006-01-02"))
	params.Set("to", r.End.Format("2006-01-02"))

	resp, err := c.get(ctx, primaryPath, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		c.logger.Debug().Str("symbol", symbol).Msg("primary endpoint 404, retrying legacy path")
		resp, err = c.get(ctx, legacyPath, params)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, common.AuthError(sourceName, "unauthorized access to PSX API", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, common.ConnectionError(sourceName, fmt.Sprintf("historical API returned status %d for %s", resp.StatusCode, symbol), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to read response body", err)
	}

	bars, stats, err := parsePayload(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("rows", len(bars)).
		Int("dropped", stats.Dropped).
		Int("coerced", stats.Coerced).
		Msg("PSX historical API parsed")

	return bars, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to create request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("PSX API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to execute request", err)
	}
	return resp, nil
}

// tuplePayload is the JSON shape of the historical API: rows of
// [date, open, high, low, close, volume] where numerics may arrive as
// numbers or comma-grouped strings.
type tuplePayload struct {
	Data [][]json.RawMessage `json:"data"`
}

// parsePayload interprets an API body as either the JSON tuple payload or a
// rendered HTML table, whichever the endpoint happened to return.
func parsePayload(body []byte) ([]models.Bar, models.ParseStats, error) {
	var stats models.ParseStats

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload tuplePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, stats, common.DataError(sourceName, "invalid JSON response from PSX API", err)
		}
		bars := make([]models.Bar, 0, len(payload.Data))
		for _, row := range payload.Data {
			bar, ok := parseTupleRow(row, &stats)
			if !ok {
				stats.Dropped++
				continue
			}
			bars = append(bars, bar)
		}
		return bars, stats, nil
	}

	bars, stats, ok := parseHTMLTable(trimmed)
	if !ok {
		return nil, stats, common.DataError(sourceName, "response is neither JSON nor a historical-data table", nil)
	}
	return bars, stats, nil
}

// parseTupleRow converts one [date, o, h, l, c, v] tuple into a Bar.
func parseTupleRow(row []json.RawMessage, stats *models.ParseStats) (models.Bar, bool) {
	if len(row) < 6 {
		return models.Bar{}, false
	}

	var dateStr string
	if err := json.Unmarshal(row[0], &dateStr); err != nil {
		return models.Bar{}, false
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return models.Bar{}, false
	}

	bar := models.Bar{Time: t}
	for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close} {
		v, coerced := parseNumeric(row[i+1])
		if coerced {
			stats.Coerced++
		}
		*dst = v
	}
	vol, coerced := parseNumeric(row[5])
	if coerced {
		stats.Coerced++
	}
	bar.Volume = int64(vol)

	return bar, true
}

// parseNumeric handles tuple cells that arrive as JSON numbers or as strings
// with comma thousands separators. Unusable cells widen to zero.
func parseNumeric(raw json.RawMessage) (float64, bool) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.ParseDecimal(s)
	}
	return 0, true
}

// Ensure Client implements RangeSource
var _ interfaces.RangeSource = (*Client)(nil)
