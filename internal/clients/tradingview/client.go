// Package tradingview provides a client for the TradingView chart websocket
// feed, used as the last-resort historical source.
package tradingview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/interfaces"
	"github.com/psxlabs/psxgo/internal/models"
)

const (
	DefaultSignInURL = "https://www.tradingview.com/accounts/signin/"
	DefaultSocketURL = "wss://data.tradingview.com/socket.io/websocket"
	DefaultOrigin    = "https://www.tradingview.com"
	DefaultTimeout   = 30 * time.Second

	// MaxBars is the bar-count cap per history request. The feed returns the
	// symbol's most recent bars up to this count; range narrowing happens
	// downstream at the merge/filter step.
	MaxBars = 5000

	// Exchange prefixes every resolved symbol, e.g. "PSX:HBL".
	Exchange = "PSX"

	resolution = "1D"
	sourceName = "tradingview"
)

// Client authenticates once per instance and then serves bar history over the
// chart websocket. A failed or missing-credential authentication is sticky:
// every later call fails fast with the same authentication error.
type Client struct {
	signInURL  string
	socketURL  string
	username   string
	password   string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *common.Logger

	mu        sync.Mutex
	authToken string
	authErr   error
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithCredentials sets explicit credentials, overriding configuration
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithSignInURL sets the sign-in endpoint
func WithSignInURL(u string) ClientOption {
	return func(c *Client) {
		c.signInURL = u
	}
}

// WithSocketURL sets the chart websocket endpoint
func WithSocketURL(u string) ClientOption {
	return func(c *Client) {
		c.socketURL = u
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP and websocket handshake timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
		c.dialer.HandshakeTimeout = timeout
	}
}

// NewClient creates a new TradingView client. Credentials come from the
// options (the config layer resolves TV_USERNAME / TV_PASSWORD).
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		signInURL: DefaultSignInURL,
		socketURL: DefaultSocketURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// signInResponse is the sign-in endpoint's payload.
type signInResponse struct {
	Error string `json:"error"`
	User  struct {
		AuthToken string `json:"auth_token"`
	} `json:"user"`
}

// Authenticate signs in and caches the auth token. Missing or rejected
// credentials poison the client: the resulting authentication error is
// returned from every subsequent call without another attempt.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	if c.authErr != nil {
		return c.authErr
	}
	if c.authToken != "" {
		return nil
	}

	if c.username == "" || c.password == "" {
		c.authErr = common.AuthError(sourceName, "credentials not provided: set TV_USERNAME and TV_PASSWORD or pass WithCredentials", nil)
		return c.authErr
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("remember", "on")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signInURL, strings.NewReader(form.Encode()))
	if err != nil {
		return common.ConnectionError(sourceName, "failed to create sign-in request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", DefaultOrigin)
	req.Header.Set("Referer", DefaultOrigin+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure: not sticky, a later attempt may reach the server.
		return common.ConnectionError(sourceName, "sign-in request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.authErr = common.AuthError(sourceName, fmt.Sprintf("sign-in returned status %d", resp.StatusCode), nil)
		return c.authErr
	}

	var signIn signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&signIn); err != nil {
		c.authErr = common.AuthError(sourceName, "unparseable sign-in response", err)
		return c.authErr
	}

	if signIn.Error != "" || signIn.User.AuthToken == "" {
		c.authErr = common.AuthError(sourceName, fmt.Sprintf("credentials rejected: %s", signIn.Error), nil)
		return c.authErr
	}

	c.authToken = signIn.User.AuthToken
	c.logger.Info().Str("username", c.username).Msg("TradingView authenticated")

	return nil
}

// GetHistory retrieves up to MaxBars daily bars for a symbol. The feed serves
// the most recent bars regardless of the requested window; the caller narrows
// to r afterwards.
func (c *Client) GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	c.mu.Lock()
	err := c.authenticateLocked(ctx)
	token := c.authToken
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", DefaultOrigin)

	conn, _, err := c.dialer.DialContext(ctx, c.socketURL, header)
	if err != nil {
		return nil, common.ConnectionError(sourceName, "failed to open chart socket", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(c.httpClient.Timeout))
		conn.SetWriteDeadline(time.Now().Add(c.httpClient.Timeout))
	}

	session := chartSession()
	fullSymbol := fmt.Sprintf("%s:%s", Exchange, symbol)

	setup := []struct {
		m string
		p []interface{}
	}{
		{"set_auth_token", []interface{}{token}},
		{"chart_create_session", []interface{}{session, ""}},
		{"switch_timezone", []interface{}{session, "Etc/UTC"}},
		{"resolve_symbol", []interface{}{session, "sds_sym_1", fullSymbol}},
		{"create_series", []interface{}{session, "sds_1", "s1", "sds_sym_1", resolution, MaxBars, ""}},
	}
	for _, msg := range setup {
		if err := writeMessage(conn, msg.m, msg.p); err != nil {
			return nil, common.ConnectionError(sourceName, fmt.Sprintf("failed to send %s", msg.m), err)
		}
	}

	c.logger.Debug().
		Str("symbol", fullSymbol).
		Str("from", r.Start.Format("2006-01-02")).
		Str("to", r.End.Format("2006-01-02")).
		Int("max_bars", MaxBars).
		Msg("TradingView history request")

	bars, err := c.readBars(conn)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("symbol", fullSymbol).Int("bars", len(bars)).Msg("TradingView history received")

	return bars, nil
}

// readBars consumes frames until the series completes, collecting bars from
// timescale_update messages and echoing keepalive pings.
func (c *Client) readBars(conn *websocket.Conn) ([]models.Bar, error) {
	var bars []models.Bar

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, common.ConnectionError(sourceName, "chart socket read failed", err)
		}

		for _, frame := range splitFrames(string(data)) {
			if strings.HasPrefix(frame, "~h~") {
				// Keepalive: echo it back verbatim.
				if err := writeFrame(conn, frame); err != nil {
					return nil, common.ConnectionError(sourceName, "keepalive echo failed", err)
				}
				continue
			}

			var msg socketMessage
			if err := json.Unmarshal([]byte(frame), &msg); err != nil {
				continue // session counters and other non-JSON frames
			}

			switch msg.M {
			case "timescale_update", "du":
				update, err := parseSeriesUpdate(msg)
				if err != nil {
					return nil, err
				}
				bars = append(bars, update...)
			case "series_completed":
				return bars, nil
			case "symbol_error":
				return nil, common.DataError(sourceName, "symbol could not be resolved", nil)
			case "critical_error", "protocol_error":
				return nil, common.DataError(sourceName, fmt.Sprintf("chart feed error: %s", msg.M), nil)
			}
		}
	}
}

// Ensure Client implements ChartSource
var _ interfaces.ChartSource = (*Client)(nil)
