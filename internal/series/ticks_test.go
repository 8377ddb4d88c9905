package series_test

import (
	"testing"

	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickIndices(t *testing.T) {
	t.Run("Should keep every tenth hour point and the last", func(t *testing.T) {
		assert.Equal(t, []int{0, 10, 20, 30, 40, 50, 59}, series.TickIndices(series.Hour, 60))
	})

	t.Run("Should keep every eighth 24hours point and the last", func(t *testing.T) {
		assert.Equal(t, []int{0, 8, 16, 24, 32, 40, 48, 56, 64, 72, 80, 88, 95}, series.TickIndices(series.Day24, 96))
	})

	t.Run("Should keep every week point", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, series.TickIndices(series.Week, 7))
	})

	t.Run("Should not duplicate a last index on the stride", func(t *testing.T) {
		assert.Equal(t, []int{0, 10, 20}, series.TickIndices(series.Hour, 21))
	})

	t.Run("Should return nothing for an empty series", func(t *testing.T) {
		got := series.TickIndices(series.Hour, 0)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestTicks(t *testing.T) {
	readings, err := series.Sample(series.Hour, series.VoltageProfile, sampleNow, fixedRand(0.5))
	require.NoError(t, err)

	ticks := series.Ticks(series.Hour, readings)
	require.Len(t, ticks, 7)
	assert.Equal(t, "09:01", ticks[0])
	assert.Equal(t, "09:11", ticks[1])
	assert.Equal(t, "10:00", ticks[len(ticks)-1])

	t.Run("Should handle a supplied short series", func(t *testing.T) {
		short := []series.Reading{{Label: "a"}, {Label: "b"}, {Label: "c"}}
		assert.Equal(t, []string{"a", "c"}, series.Ticks(series.Day24, short))
	})

	t.Run("Should return no ticks for an invalid period", func(t *testing.T) {
		assert.Empty(t, series.Ticks(series.Period(9), readings))
	})
}
