package history

import (
	"context"

	"github.com/psxlabs/psxgo/internal/interfaces"
	"github.com/psxlabs/psxgo/internal/models"
)

// ScrapeStrategy runs the full scrape pipeline: partition the range into
// month units, fetch them over the bounded pool, merge, and narrow to the
// requested window. The preferred source: slow but the most complete.
type ScrapeStrategy struct {
	source  interfaces.MonthSource
	fetcher *Fetcher
	opts    []FetchOption
}

// NewScrapeStrategy binds a month source to the batch fetcher.
func NewScrapeStrategy(source interfaces.MonthSource, fetcher *Fetcher, opts ...FetchOption) *ScrapeStrategy {
	return &ScrapeStrategy{source: source, fetcher: fetcher, opts: opts}
}

func (s *ScrapeStrategy) Name() string { return "psx-scrape" }

// Fetch never raises for per-unit failures: a batch where every unit failed
// surfaces as an empty result, which the resolver treats as this strategy
// failing.
func (s *ScrapeStrategy) Fetch(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	units := Partition(symbol, r.Start, r.End)
	results, _ := s.fetcher.FetchAll(ctx, s.source, units, s.opts...)
	return FilterRange(CollectBars(results), r), nil
}

// APIStrategy fetches the whole range in one call against the direct API.
type APIStrategy struct {
	client interfaces.RangeSource
}

// NewAPIStrategy wraps a range source.
func NewAPIStrategy(client interfaces.RangeSource) *APIStrategy {
	return &APIStrategy{client: client}
}

func (s *APIStrategy) Name() string { return "psx-api" }

func (s *APIStrategy) Fetch(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	bars, err := s.client.GetHistory(ctx, symbol, r)
	if err != nil {
		return nil, err
	}
	return Merge(bars), nil
}

// ChartStrategy fetches from the external charting feed. The feed serves the
// symbol's most recent bars up to its cap, so the result is narrowed here.
type ChartStrategy struct {
	client interfaces.ChartSource
}

// NewChartStrategy wraps a chart source.
func NewChartStrategy(client interfaces.ChartSource) *ChartStrategy {
	return &ChartStrategy{client: client}
}

func (s *ChartStrategy) Name() string { return "tradingview" }

func (s *ChartStrategy) Fetch(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	bars, err := s.client.GetHistory(ctx, symbol, r)
	if err != nil {
		return nil, err
	}
	return FilterRange(Merge(bars), r), nil
}
