package history

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/interfaces"
	"github.com/psxlabs/psxgo/internal/models"
)

// DefaultWorkers is the worker-pool width of a historical batch.
const DefaultWorkers = 6

// UnitResult is the explicit outcome of one fetch unit: either bars or a
// classified error, never an out-of-band signal. Callers branch on Err.
type UnitResult struct {
	Unit  models.FetchUnit
	Bars  []models.Bar
	Stats models.ParseStats
	Err   error
}

// BatchStats summarizes one batch for observability: unit counts plus the
// data-quality repairs made while parsing.
type BatchStats struct {
	BatchID string
	Units   int
	Failed  int
	Rows    int
	Dropped int
	Coerced int
}

// FetchOption configures a batch
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	workers  int
	progress func(done, total int)
}

// WithWorkers sets the worker-pool width
func WithWorkers(n int) FetchOption {
	return func(c *fetchConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithProgress installs a completion callback, invoked once per finished unit
// with the running count. A side channel only; it never affects results.
func WithProgress(fn func(done, total int)) FetchOption {
	return func(c *fetchConfig) {
		c.progress = fn
	}
}

// Fetcher runs month units against a MonthSource over a bounded worker pool.
type Fetcher struct {
	logger *common.Logger
}

// NewFetcher creates a fetcher
func NewFetcher(logger *common.Logger) *Fetcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Fetcher{logger: logger}
}

// FetchAll dispatches one task per unit to a fixed-size pool. Tasks execute
// independently: a failing unit is recorded in its UnitResult and never
// cancels siblings. Results are re-sorted into unit chronological order after
// all workers pass the barrier. A batch where every unit failed comes back
// with zero usable rows and a nil-error result set — emptiness, not a raised
// error, is the signal the fallback layer checks.
func (f *Fetcher) FetchAll(ctx context.Context, source interfaces.MonthSource, units []models.FetchUnit, opts ...FetchOption) ([]UnitResult, BatchStats) {
	cfg := fetchConfig{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}

	stats := BatchStats{
		BatchID: uuid.NewString(),
		Units:   len(units),
	}
	if len(units) == 0 {
		return nil, stats
	}

	f.logger.Debug().
		Str("batch", stats.BatchID).
		Int("units", len(units)).
		Int("workers", cfg.workers).
		Msg("Starting historical batch")

	sem := make(chan struct{}, cfg.workers)
	results := make([]UnitResult, len(units))

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, unit := range units {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			// Remaining units are recorded as failed, not silently missing.
			results[i] = UnitResult{Unit: unit, Err: common.ConnectionError("fetcher", "batch cancelled", ctx.Err())}
			continue
		}

		wg.Add(1)
		go func(i int, unit models.FetchUnit) {
			defer wg.Done()
			defer func() { <-sem }()

			bars, parseStats, err := source.FetchMonth(ctx, unit)
			results[i] = UnitResult{Unit: unit, Bars: bars, Stats: parseStats, Err: err}

			if err != nil {
				f.logger.Warn().Str("batch", stats.BatchID).Str("unit", unit.String()).Err(err).Msg("Fetch unit failed")
			}

			mu.Lock()
			done++
			d := done
			mu.Unlock()
			if cfg.progress != nil {
				cfg.progress(d, len(units))
			}
		}(i, unit)
	}

	// Barrier: no merging before every worker has reported.
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Unit.Before(results[j].Unit) })

	for _, res := range results {
		if res.Err != nil {
			stats.Failed++
			continue
		}
		stats.Rows += len(res.Bars)
		stats.Dropped += res.Stats.Dropped
		stats.Coerced += res.Stats.Coerced
	}

	f.logger.Debug().
		Str("batch", stats.BatchID).
		Int("rows", stats.Rows).
		Int("failed", stats.Failed).
		Int("dropped", stats.Dropped).
		Int("coerced", stats.Coerced).
		Msg("Historical batch complete")

	return results, stats
}
