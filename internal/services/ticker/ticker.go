// Package ticker exposes the per-symbol facade over the acquisition pipeline
package ticker

import (
	"context"
	"sort"
	"time"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/interfaces"
	"github.com/psxlabs/psxgo/internal/models"
	"github.com/psxlabs/psxgo/internal/services/history"
)

// DefaultPeriod is the historical window when the caller gives neither a
// range nor a period.
const DefaultPeriod = "1mo"

// Ticker owns one canonicalized symbol and delegates retrieval to the
// fallback resolver (historical) and the intraday source. Construct one per
// symbol; instances are cheap and stateless beyond their dependencies.
type Ticker struct {
	symbol   string
	resolver *history.Resolver
	intraday interfaces.IntradaySource
	logger   *common.Logger
	now      func() time.Time
}

// New creates a ticker for a symbol. The symbol is canonicalized
// (trimmed, upper-cased); an empty symbol is a configuration error.
func New(symbol string, resolver *history.Resolver, intraday interfaces.IntradaySource, logger *common.Logger) (*Ticker, error) {
	canonical, err := models.CanonicalSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Ticker{
		symbol:   canonical,
		resolver: resolver,
		intraday: intraday,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Symbol returns the canonicalized symbol.
func (t *Ticker) Symbol() string { return t.symbol }

// HistoricalOption configures a historical query
type HistoricalOption func(*historicalQuery)

type historicalQuery struct {
	start  time.Time
	end    time.Time
	period string
}

// WithRange sets an explicit date range, overriding any period shorthand.
func WithRange(start, end time.Time) HistoricalOption {
	return func(q *historicalQuery) {
		q.start = start
		q.end = end
	}
}

// WithEnd sets the end of the window, leaving the start to the period
// shorthand. Useful for "3mo ending at some past date" queries.
func WithEnd(end time.Time) HistoricalOption {
	return func(q *historicalQuery) {
		q.end = end
	}
}

// WithPeriod sets a period shorthand like "3mo" or "1y", counted back from
// the window's end. Ignored when an explicit start is set.
func WithPeriod(period string) HistoricalOption {
	return func(q *historicalQuery) {
		q.period = period
	}
}

// Historical retrieves daily bars for the symbol. Either returns a non-empty,
// chronologically sorted sequence or a terminal error naming the cause —
// never an empty success that looks like "no trading happened".
func (t *Ticker) Historical(ctx context.Context, opts ...HistoricalOption) ([]models.Bar, error) {
	q := historicalQuery{period: DefaultPeriod}
	for _, opt := range opts {
		opt(&q)
	}

	r, err := t.resolveRange(q)
	if err != nil {
		return nil, err
	}

	t.logger.Debug().
		Str("symbol", t.symbol).
		Str("from", r.Start.Format("2006-01-02")).
		Str("to", r.End.Format("2006-01-02")).
		Msg("Historical query")

	return t.resolver.Resolve(ctx, t.symbol, r)
}

// resolveRange derives the query window. A missing end defaults to now; a
// missing start is derived from the period shorthand counted back from end
// with calendar arithmetic.
func (t *Ticker) resolveRange(q historicalQuery) (models.DateRange, error) {
	end := q.end
	if end.IsZero() {
		end = t.now()
	}
	if q.start.IsZero() {
		return models.RangeFromPeriod(q.period, end)
	}
	return models.NewDateRange(q.start, end)
}

// Intraday retrieves the current day's tick sequence, ascending by time.
// Single source; no fallback chain, same error taxonomy.
func (t *Ticker) Intraday(ctx context.Context) ([]models.Tick, error) {
	return t.intraday.GetIntraday(ctx, t.symbol)
}

// Quote summarizes the day's ticks: latest price, change against the day's
// opening tick, and total traded volume.
func (t *Ticker) Quote(ctx context.Context) (*models.Quote, error) {
	ticks, err := t.intraday.GetIntraday(ctx, t.symbol)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, common.DataError("ticker", "no ticks to summarize", nil)
	}

	opening := ticks[0]
	latest := ticks[len(ticks)-1]

	var volume int64
	for _, tick := range ticks {
		volume += tick.Volume
	}

	change := latest.Price - opening.Price
	changePct := 0.0
	if opening.Price > 0 {
		changePct = change / opening.Price * 100
	}

	return &models.Quote{
		Symbol:    t.symbol,
		Price:     latest.Price,
		Change:    change,
		ChangePct: changePct,
		Volume:    volume,
		Timestamp: latest.Time,
	}, nil
}

// OHLC buckets the day's ticks into daily OHLCV bars: first/max/min/last
// price and summed volume per calendar day, ascending.
func (t *Ticker) OHLC(ctx context.Context) ([]models.Bar, error) {
	ticks, err := t.intraday.GetIntraday(ctx, t.symbol)
	if err != nil {
		return nil, err
	}
	return AggregateTicks(ticks), nil
}

// AggregateTicks folds an ascending tick sequence into per-day OHLCV bars.
func AggregateTicks(ticks []models.Tick) []models.Bar {
	if len(ticks) == 0 {
		return nil
	}

	byDay := make(map[time.Time]*models.Bar)
	for _, tick := range ticks {
		day := time.Date(tick.Time.Year(), tick.Time.Month(), tick.Time.Day(), 0, 0, 0, 0, time.UTC)
		bar, ok := byDay[day]
		if !ok {
			bar = &models.Bar{
				Time: day,
				Open: tick.Price,
				High: tick.Price,
				Low:  tick.Price,
			}
			byDay[day] = bar
		}
		if tick.Price > bar.High {
			bar.High = tick.Price
		}
		if tick.Price < bar.Low {
			bar.Low = tick.Price
		}
		bar.Close = tick.Price
		bar.Volume += tick.Volume
	}

	bars := make([]models.Bar, 0, len(byDay))
	for _, bar := range byDay {
		bars = append(bars, *bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return bars
}
