// Package history implements the historical-data acquisition pipeline:
// partitioning a date range into month units, fetching them over a bounded
// worker pool, merging the partial results, and falling back across sources.
package history

import (
	"time"

	"github.com/psxlabs/psxgo/internal/models"
)

// Partition splits [start, end] into one FetchUnit per calendar month
// touched, ascending, beginning with start's month. Same-day and inverted
// input still yield the single unit of start's month: a month is the fetch
// granularity floor, and range filtering happens after the merge, not here.
func Partition(symbol string, start, end time.Time) []models.FetchUnit {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	if last.Before(first) {
		last = first
	}

	var units []models.FetchUnit
	for cur := first; !cur.After(last); cur = cur.AddDate(0, 1, 0) {
		units = append(units, models.FetchUnit{
			Symbol: symbol,
			Year:   cur.Year(),
			Month:  cur.Month(),
		})
	}

	return units
}
