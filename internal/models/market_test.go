package models

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psxlabs/psxgo/internal/common"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		coerced bool
	}{
		{"1,234.50", 1234.50, false},
		{"123.45", 123.45, false},
		{"1,234,567", 1234567, false},
		{"-", 0, true},
		{"", 0, true},
		{"   ", 0, true},
		{"n/a", 0, true},
		{"12.5", 12.5, false},
		{" 98.20 ", 98.20, false},
	}

	for _, tt := range tests {
		got, coerced := ParseDecimal(tt.in)
		assert.Equal(t, tt.want, got, "value for %q", tt.in)
		assert.Equal(t, tt.coerced, coerced, "coerced flag for %q", tt.in)
	}
}

func TestParseVolume(t *testing.T) {
	got, coerced := ParseVolume("3,500,000")
	assert.Equal(t, int64(3500000), got)
	assert.False(t, coerced)

	got, coerced = ParseVolume("-")
	assert.Equal(t, int64(0), got)
	assert.True(t, coerced)
}

func TestCanonicalSymbol(t *testing.T) {
	s, err := CanonicalSymbol("  hbl ")
	require.NoError(t, err)
	assert.Equal(t, "HBL", s)

	_, err = CanonicalSymbol("   ")
	require.Error(t, err)
	assert.True(t, common.IsConfig(err))
}

func TestNewDateRange_RejectsInversion(t *testing.T) {
	start := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	_, err := NewDateRange(start, end)
	require.Error(t, err)
	assert.True(t, common.IsConfig(err))

	r, err := NewDateRange(start, start)
	require.NoError(t, err)
	assert.True(t, r.Contains(start))
}

func TestRangeFromPeriod(t *testing.T) {
	end := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	r, err := RangeFromPeriod("3mo", end)
	require.NoError(t, err)
	assert.Equal(t, end.AddDate(0, -3, 0), r.Start, "3mo uses calendar-month arithmetic")
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.Start)

	r, err = RangeFromPeriod("2y", end)
	require.NoError(t, err)
	assert.Equal(t, end.AddDate(-2, 0, 0), r.Start)
}

func TestRangeFromPeriod_MatchesManualComputation(t *testing.T) {
	// Deterministic across a spread of end dates, including month-length
	// edges where day-count approximations would drift.
	ends := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 4, 12, 30, 0, 0, time.UTC),
	}
	for _, end := range ends {
		for months := 1; months <= 18; months++ {
			r, err := RangeFromPeriod(strconv.Itoa(months)+"mo", end)
			require.NoError(t, err)
			assert.Equal(t, end.AddDate(0, -months, 0), r.Start, "end=%s months=%d", end, months)
			assert.Equal(t, end, r.End)
		}
	}
}

func TestRangeFromPeriod_InvalidFormats(t *testing.T) {
	end := time.Now()
	for _, period := range []string{"", "mo", "3m", "3d", "x1y", "1y2", "-3mo", "0mo"} {
		_, err := RangeFromPeriod(period, end)
		require.Error(t, err, "period %q", period)
		assert.True(t, common.IsConfig(err), "period %q should be a config error", period)
	}
}

func TestFetchUnitOrder(t *testing.T) {
	dec23 := FetchUnit{Symbol: "HBL", Year: 2023, Month: time.December}
	jan24 := FetchUnit{Symbol: "HBL", Year: 2024, Month: time.January}

	assert.True(t, dec23.Before(jan24))
	assert.False(t, jan24.Before(dec23))
	assert.False(t, jan24.Before(jan24))
	assert.Equal(t, "HBL 2023-12", dec23.String())
}
