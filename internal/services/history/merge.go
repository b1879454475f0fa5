package history

import (
	"sort"
	"time"

	"github.com/psxlabs/psxgo/internal/models"
)

// Merge concatenates bar sequences and resolves duplicate timestamps by
// position: the bar from the later input wins. Overlap is expected at month
// boundaries and near today, where a re-fetch supersedes earlier data. The
// output is a fresh, ascending-sorted slice; inputs are never mutated.
// Merge is idempotent and merging a result with itself is the identity.
func Merge(results ...[]models.Bar) []models.Bar {
	total := 0
	for _, r := range results {
		total += len(r)
	}
	if total == 0 {
		return nil
	}

	byTime := make(map[time.Time]int, total)
	merged := make([]models.Bar, 0, total)
	for _, r := range results {
		for _, bar := range r {
			if idx, ok := byTime[bar.Time]; ok {
				merged[idx] = bar // last write wins
				continue
			}
			byTime[bar.Time] = len(merged)
			merged = append(merged, bar)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })

	return merged
}

// CollectBars merges the successful units of a batch, in unit order.
func CollectBars(results []UnitResult) []models.Bar {
	sequences := make([][]models.Bar, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		sequences = append(sequences, res.Bars)
	}
	return Merge(sequences...)
}

// FilterRange narrows bars to [r.Start, r.End] inclusive, preserving order.
// Month-granularity fetching over-fetches at the edges; this is where the
// requested window is restored.
func FilterRange(bars []models.Bar, r models.DateRange) []models.Bar {
	filtered := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		if r.Contains(bar.Time) {
			filtered = append(filtered, bar)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
