// Package psxweb provides a client for the PSX data portal's HTML pages and
// timeseries endpoints.
package psxweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
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
	DefaultRateLimit = 5 // requests per second

	// historyDateLayout is the date format of the historical page's TIME
	// column, e.g. "Oct 05, 2023".
	historyDateLayout = "Jan 02, 2006"

	sourceName = "psxweb"
)

// historyColumns is the fixed column order of the historical-data table.
// TIME, OPEN, HIGH, LOW, CLOSE, VOLUME.
const historyColumns = 6

// Client scrapes the PSX data portal. Safe for concurrent use: the underlying
// http.Client owns connection pooling, so batch workers share one Client.
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

// NewClient creates a new PSX portal client.
// No API key is required — these are public endpoints.
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

// setBrowserHeaders mimics a browser; the portal rejects bare clients.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
}

// FetchMonth retrieves one calendar month of daily bars by posting the
// month/year/symbol form to the historical page and parsing the table rows.
// Short rows and rows with unparseable dates are dropped; numeric cells that
// fail to parse widen to zero. Both repairs are counted in the returned stats.
func (c *Client) FetchMonth(ctx context.Context, unit models.FetchUnit) ([]models.Bar, models.ParseStats, error) {
	var stats models.ParseStats

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, stats, common.ConnectionError(sourceName, "rate limit wait", err)
	}

	form := url.Values{}
	form.Set("month", strconv.Itoa(int(unit.Month)))
	form.Set("year", strconv.Itoa(unit.Year))
	form.Set("symbol", unit.Symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/historical", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, stats, common.ConnectionError(sourceName, "failed to create request", err)
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("unit", unit.String()).Msg("PSX historical page request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("unit", unit.String()).Dur("elapsed", elapsed).Msg("PSX historical page request failed")
		return nil, stats, common.ConnectionError(sourceName, fmt.Sprintf("historical page request for %s", unit), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("unit", unit.String()).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("PSX historical page non-OK response")
		return nil, stats, common.ConnectionError(sourceName, fmt.Sprintf("historical page returned status %d for %s", resp.StatusCode, unit), nil)
	}

	rows, err := tableRows(resp.Body)
	if err != nil {
		return nil, stats, common.DataError(sourceName, fmt.Sprintf("unparseable historical page for %s", unit), err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < historyColumns {
			stats.Dropped++
			continue
		}

		t, err := time.Parse(historyDateLayout, row[0])
		if err != nil {
			stats.Dropped++
			continue
		}

		bar := models.Bar{Time: t}
		for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close} {
			v, coerced := models.ParseDecimal(row[i+1])
			if coerced {
				stats.Coerced++
			}
			*dst = v
		}
		vol, coerced := models.ParseVolume(row[5])
		if coerced {
			stats.Coerced++
		}
		bar.Volume = vol

		bars = append(bars, bar)
	}

	c.logger.Debug().
		Str("unit", unit.String()).
		Int("rows", len(bars)).
		Int("dropped", stats.Dropped).
		Int("coerced", stats.Coerced).
		Dur("elapsed", elapsed).
		Msg("PSX historical page parsed")

	return bars, stats, nil
}

// timeseriesResponse is the shape of the intraday endpoint's payload.
type timeseriesResponse struct {
	Status int         `json:"status"`
	Data   [][]float64 `json:"data"`
}

// GetIntraday retrieves the current day's tick sequence for a symbol,
// ascending by timestamp. A missing or empty series is a data error, not an
// empty success: "no ticks" from this endpoint means the symbol is unknown or
// the feed is broken.
func (c *Client) GetIntraday(ctx context.Context, symbol string) ([]models.Tick, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.ConnectionError(sourceName, "rate limit wait", err)
	}

	reqURL := fmt.Sprintf("%s/timeseries/int/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to create request", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.ConnectionError(sourceName, fmt.Sprintf("intraday request for %s", symbol), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.ConnectionError(sourceName, fmt.Sprintf("intraday endpoint returned status %d for %s", resp.StatusCode, symbol), nil)
	}

	var ts timeseriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, common.DataError(sourceName, fmt.Sprintf("unparseable intraday payload for %s", symbol), err)
	}

	if ts.Status != 1 || len(ts.Data) == 0 {
		return nil, common.DataError(sourceName, fmt.Sprintf("no intraday data for %s (status %d)", symbol, ts.Status), nil)
	}

	ticks := make([]models.Tick, 0, len(ts.Data))
	for _, entry := range ts.Data {
		if len(entry) < 3 {
			continue
		}
		ticks = append(ticks, models.Tick{
			Time:   time.Unix(int64(entry[0]), 0).UTC(),
			Price:  entry[1],
			Volume: int64(entry[2]),
		})
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Time.Before(ticks[j].Time) })

	c.logger.Debug().Str("symbol", symbol).Int("ticks", len(ticks)).Msg("PSX intraday series fetched")

	return ticks, nil
}

// GetSymbols retrieves the exchange's symbol directory.
func (c *Client) GetSymbols(ctx context.Context) ([]models.SymbolInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.ConnectionError(sourceName, "rate limit wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/symbols", nil)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to create request", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "symbols request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.ConnectionError(sourceName, fmt.Sprintf("symbols endpoint returned status %d", resp.StatusCode), nil)
	}

	var symbols []models.SymbolInfo
	if err := json.NewDecoder(resp.Body).Decode(&symbols); err != nil {
		return nil, common.DataError(sourceName, "unparseable symbols payload", err)
	}

	return symbols, nil
}

// Ensure Client implements the source interfaces
var (
	_ interfaces.MonthSource     = (*Client)(nil)
	_ interfaces.IntradaySource  = (*Client)(nil)
	_ interfaces.SymbolDirectory = (*Client)(nil)
)
