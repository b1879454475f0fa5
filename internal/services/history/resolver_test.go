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

// stubStrategy is a canned Strategy for resolver tests.
type stubStrategy struct {
	name  string
	bars  []models.Bar
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, symbol string, r models.DateRange) ([]models.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func resolverRange(t *testing.T) models.DateRange {
	t.Helper()
	r, err := models.NewDateRange(date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)
	return r
}

func TestResolve_FirstNonEmptyWins(t *testing.T) {
	first := &stubStrategy{name: "first", bars: []models.Bar{bar(date(2024, time.March, 5), 100)}}
	second := &stubStrategy{name: "second", bars: []models.Bar{bar(date(2024, time.March, 5), 999)}}

	bars, err := NewResolver(nil, first, second).Resolve(context.Background(), "HBL", resolverRange(t))
	require.NoError(t, err)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 0, second.calls, "later strategies are not consulted")
}

func TestResolve_AdvancesOnError(t *testing.T) {
	broken := &stubStrategy{name: "broken", err: common.ConnectionError("test", "down", nil)}
	working := &stubStrategy{name: "working", bars: []models.Bar{bar(date(2024, time.March, 5), 100)}}

	bars, err := NewResolver(nil, broken, working).Resolve(context.Background(), "HBL", resolverRange(t))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, broken.calls)
}

func TestResolve_AdvancesOnEmpty(t *testing.T) {
	empty := &stubStrategy{name: "empty"}
	working := &stubStrategy{name: "working", bars: []models.Bar{bar(date(2024, time.March, 5), 100)}}

	bars, err := NewResolver(nil, empty, working).Resolve(context.Background(), "HBL", resolverRange(t))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestResolve_AuthFailureDoesNotAbortWalk(t *testing.T) {
	unauthorized := &stubStrategy{name: "chart", err: common.AuthError("chart", "credentials rejected", nil)}
	working := &stubStrategy{name: "working", bars: []models.Bar{bar(date(2024, time.March, 5), 100)}}

	bars, err := NewResolver(nil, unauthorized, working).Resolve(context.Background(), "HBL", resolverRange(t))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestResolve_ExhaustionNamesEveryAttempt(t *testing.T) {
	empty := &stubStrategy{name: "scrape"}
	broken := &stubStrategy{name: "api", err: common.ConnectionError("api", "503", nil)}
	unauthorized := &stubStrategy{name: "chart", err: common.AuthError("chart", "no credentials", nil)}

	_, err := NewResolver(nil, empty, broken, unauthorized).Resolve(context.Background(), "HBL", resolverRange(t))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "HBL", exhausted.Symbol)
	require.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, "scrape", exhausted.Attempts[0].Strategy)
	assert.Equal(t, "empty result", exhausted.Attempts[0].Reason)
	assert.Equal(t, "api", exhausted.Attempts[1].Strategy)
	assert.Equal(t, "chart", exhausted.Attempts[2].Strategy)

	assert.Contains(t, err.Error(), "all sources exhausted for HBL")
	assert.Contains(t, err.Error(), "scrape: empty result")
}

func TestResolve_NoStrategiesIsConfigError(t *testing.T) {
	_, err := NewResolver(nil).Resolve(context.Background(), "HBL", resolverRange(t))
	require.Error(t, err)
	assert.True(t, common.IsConfig(err))
}

func TestResolve_CancelledContextStopsWalk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	empty := &stubStrategy{name: "first"}
	never := &stubStrategy{name: "second", bars: []models.Bar{bar(date(2024, time.March, 5), 100)}}

	_, err := NewResolver(nil, empty, never).Resolve(ctx, "HBL", resolverRange(t))
	require.Error(t, err)
	assert.Equal(t, 0, never.calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "context", exhausted.Attempts[len(exhausted.Attempts)-1].Strategy)
}
