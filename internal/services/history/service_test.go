package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/models"
)

func TestScrapeStrategy_NarrowsToRequestedWindow(t *testing.T) {
	source := monthSourceFunc(func(ctx context.Context, unit models.FetchUnit) ([]models.Bar, models.ParseStats, error) {
		// Whole-month data regardless of the requested edges.
		return []models.Bar{
			bar(date(unit.Year, unit.Month, 1), 1),
			bar(date(unit.Year, unit.Month, 15), 15),
			bar(date(unit.Year, unit.Month, 28), 28),
		}, models.ParseStats{}, nil
	})

	strategy := NewScrapeStrategy(source, NewFetcher(nil))
	r, err := models.NewDateRange(date(2024, time.March, 10), date(2024, time.April, 20))
	require.NoError(t, err)

	bars, err := strategy.Fetch(context.Background(), "HBL", r)
	require.NoError(t, err)

	// March 15, 28 and April 1, 15 survive the filter.
	require.Len(t, bars, 4)
	assert.Equal(t, date(2024, time.March, 15), bars[0].Time)
	assert.Equal(t, date(2024, time.April, 15), bars[3].Time)
}

func TestScrapeStrategy_TotalFailureIsEmptyNotError(t *testing.T) {
	source := monthSourceFunc(func(ctx context.Context, unit models.FetchUnit) ([]models.Bar, models.ParseStats, error) {
		return nil, models.ParseStats{}, common.ConnectionError("test", "down", nil)
	})

	strategy := NewScrapeStrategy(source, NewFetcher(nil))
	r, err := models.NewDateRange(date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)

	bars, err := strategy.Fetch(context.Background(), "HBL", r)
	require.NoError(t, err, "scrape failures surface as emptiness for the resolver")
	assert.Empty(t, bars)
}

type rangeSourceFunc func(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error)

func (f rangeSourceFunc) GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	return f(ctx, symbol, r)
}

func TestAPIStrategy_DeduplicatesAndSorts(t *testing.T) {
	client := rangeSourceFunc(func(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
		return []models.Bar{
			bar(date(2024, time.March, 5), 5),
			bar(date(2024, time.March, 1), 1),
			bar(date(2024, time.March, 5), 50), // duplicate day, later wins
		}, nil
	})

	strategy := NewAPIStrategy(client)
	r, err := models.NewDateRange(date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)

	bars, err := strategy.Fetch(context.Background(), "HBL", r)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, 50.0, bars[1].Close)
}

func TestAPIStrategy_PropagatesError(t *testing.T) {
	client := rangeSourceFunc(func(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
		return nil, common.AuthError("psxapi", "unauthorized", nil)
	})

	strategy := NewAPIStrategy(client)
	r, _ := models.NewDateRange(date(2024, time.March, 1), date(2024, time.March, 31))

	_, err := strategy.Fetch(context.Background(), "HBL", r)
	require.Error(t, err)
	assert.True(t, common.IsAuth(err))
}

type chartSourceFunc func(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error)

func (f chartSourceFunc) Authenticate(ctx context.Context) error { return nil }

func (f chartSourceFunc) GetHistory(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	return f(ctx, symbol, r)
}

func TestChartStrategy_NarrowsOverFetchedFeed(t *testing.T) {
	client := chartSourceFunc(func(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
		// The feed serves its most recent bars regardless of the window.
		return []models.Bar{
			bar(date(2023, time.December, 1), 1),
			bar(date(2024, time.March, 5), 5),
			bar(date(2024, time.June, 1), 6),
		}, nil
	})

	strategy := NewChartStrategy(client)
	r, err := models.NewDateRange(date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)

	bars, err := strategy.Fetch(context.Background(), "HBL", r)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, date(2024, time.March, 5), bars[0].Time)
}

func TestStrategyNames(t *testing.T) {
	assert.Equal(t, "psx-scrape", NewScrapeStrategy(nil, NewFetcher(nil)).Name())
	assert.Equal(t, "psx-api", NewAPIStrategy(nil).Name())
	assert.Equal(t, "tradingview", NewChartStrategy(nil).Name())
}
