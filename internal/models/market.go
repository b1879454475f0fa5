// Package models defines the data types shared across psxgo
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/psxlabs/psxgo/internal/common"
)

// Bar is one daily OHLCV record. Low <= Open,Close <= High is a data-quality
// expectation on upstream data, not an enforced invariant: sources violate it
// and the pipeline must carry such bars through unchanged.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Tick is one intraday trade observation at epoch-second resolution.
type Tick struct {
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Volume int64     `json:"volume"`
}

// Quote is an intraday summary derived from the day's ticks.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// SymbolInfo is one entry of the exchange symbol directory.
type SymbolInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sectorName"`
	IsETF  bool   `json:"isETF"`
	IsDebt bool   `json:"isDebt"`
}

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range, rejecting inverted input.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, common.ConfigError("range", fmt.Sprintf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02")), nil)
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the range, inclusive on both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

var periodPattern = regexp.MustCompile(`^(\d+)(mo|y)$`)

// RangeFromPeriod derives a DateRange ending at end from a period shorthand
// like "3mo" or "1y". Month and year subtraction use calendar arithmetic
// (AddDate), not day-count approximations.
func RangeFromPeriod(period string, end time.Time) (DateRange, error) {
	m := periodPattern.FindStringSubmatch(period)
	if m == nil {
		return DateRange{}, common.ConfigError("period", fmt.Sprintf("invalid period %q, want e.g. \"3mo\" or \"1y\"", period), nil)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DateRange{}, common.ConfigError("period", fmt.Sprintf("invalid period count in %q", period), err)
	}

	var start time.Time
	switch m[2] {
	case "mo":
		start = end.AddDate(0, -n, 0)
	case "y":
		start = end.AddDate(-n, 0, 0)
	}

	return DateRange{Start: start, End: end}, nil
}

// FetchUnit is one month-granularity work item for the historical scrape.
// Immutable; consumed exactly once per batch.
type FetchUnit struct {
	Symbol string
	Year   int
	Month  time.Month
}

func (u FetchUnit) String() string {
	return fmt.Sprintf("%s %04d-%02d", u.Symbol, u.Year, int(u.Month))
}

// Before reports the natural (chronological) order of units.
func (u FetchUnit) Before(other FetchUnit) bool {
	if u.Year != other.Year {
		return u.Year < other.Year
	}
	return u.Month < other.Month
}

// ParseStats counts the data-quality repairs made while parsing one payload:
// rows silently dropped and numeric cells widened to zero. Widening is policy,
// not a bug, but it must stay observable.
type ParseStats struct {
	Dropped int
	Coerced int
}

// Add accumulates other into s.
func (s *ParseStats) Add(other ParseStats) {
	s.Dropped += other.Dropped
	s.Coerced += other.Coerced
}

// CanonicalSymbol trims and upper-cases a ticker symbol. Empty input is a
// caller mistake, not a source outage.
func CanonicalSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", common.ConfigError("symbol", "symbol cannot be empty", nil)
	}
	return s, nil
}

// ParseDecimal converts an upstream numeric cell to a float, stripping comma
// thousands separators. Blank, dash, or unparseable cells widen to zero; the
// second return reports that widening so batches can count coerced fields.
func ParseDecimal(cell string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" || s == "-" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return v, false
}

// ParseVolume converts an upstream volume cell to an integer with the same
// widening policy as ParseDecimal. Fractional volumes truncate.
func ParseVolume(cell string) (int64, bool) {
	v, coerced := ParseDecimal(cell)
	return int64(v), coerced
}
