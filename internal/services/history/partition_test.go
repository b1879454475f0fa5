package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psxlabs/psxgo/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPartition_SpansYearBoundary(t *testing.T) {
	units := Partition("HBL", date(2023, time.November, 15), date(2024, time.February, 10))

	require.Len(t, units, 4)
	assert.Equal(t, models.FetchUnit{Symbol: "HBL", Year: 2023, Month: time.November}, units[0])
	assert.Equal(t, models.FetchUnit{Symbol: "HBL", Year: 2023, Month: time.December}, units[1])
	assert.Equal(t, models.FetchUnit{Symbol: "HBL", Year: 2024, Month: time.January}, units[2])
	assert.Equal(t, models.FetchUnit{Symbol: "HBL", Year: 2024, Month: time.February}, units[3])
}

func TestPartition_SingleMonth(t *testing.T) {
	units := Partition("HBL", date(2024, time.March, 1), date(2024, time.March, 31))
	require.Len(t, units, 1)
	assert.Equal(t, time.March, units[0].Month)
}

func TestPartition_SameDay(t *testing.T) {
	d := date(2024, time.March, 15)
	units := Partition("HBL", d, d)
	require.Len(t, units, 1, "a month is the granularity floor")
}

func TestPartition_InvertedInputClamps(t *testing.T) {
	units := Partition("HBL", date(2024, time.June, 1), date(2024, time.January, 1))
	require.Len(t, units, 1)
	assert.Equal(t, time.June, units[0].Month)
}

func TestPartition_MidMonthEdgesCountCalendarMonths(t *testing.T) {
	// Jan 25 to Mar 5 is under 45 days but touches three calendar months.
	units := Partition("HBL", date(2024, time.January, 25), date(2024, time.March, 5))
	require.Len(t, units, 3)
	assert.Equal(t, time.January, units[0].Month)
	assert.Equal(t, time.March, units[2].Month)
}

func TestPartition_Ascending(t *testing.T) {
	units := Partition("HBL", date(2022, time.January, 1), date(2024, time.December, 31))
	require.Len(t, units, 36)
	for i := 1; i < len(units); i++ {
		assert.True(t, units[i-1].Before(units[i]), "units must ascend at %d", i)
	}
}
