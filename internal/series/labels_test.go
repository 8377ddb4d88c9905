package series_test

import (
	"testing"
	"time"

	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name    string
		period  series.Period
		instant time.Time
		want    string
	}{
		{"hour pads both fields", series.Hour, time.Date(2024, 1, 15, 9, 1, 0, 0, time.UTC), "09:01"},
		{"24hours midnight", series.Day24, time.Date(2024, 1, 15, 0, 30, 0, 0, time.UTC), "12:30am"},
		{"24hours noon", series.Day24, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), "12:00pm"},
		{"24hours afternoon", series.Day24, time.Date(2024, 1, 15, 14, 15, 0, 0, time.UTC), "2:15pm"},
		{"24hours morning", series.Day24, time.Date(2024, 1, 15, 9, 45, 0, 0, time.UTC), "9:45am"},
		{"week month/day", series.Week, time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC), "1/9"},
		{"week two digits", series.Week, time.Date(2024, 12, 25, 10, 0, 0, 0, time.UTC), "12/25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := series.LabelFor(tt.period, tt.instant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := series.LabelFor(series.Period(0), time.Now())
	assert.ErrorIs(t, err, series.ErrInvalidPeriod)
}

func TestWeekLabels(t *testing.T) {
	readings, err := series.Sample(series.Week, series.VoltageProfile, sampleNow, fixedRand(0.5))
	require.NoError(t, err)
	require.Len(t, readings, 7)

	assert.Equal(t, "1/9", readings[0].Label)
	assert.Equal(t, "1/15", readings[6].Label)
}

func TestRedisplay(t *testing.T) {
	t.Run("Should convert hour labels to a 12-hour clock", func(t *testing.T) {
		assert.Equal(t, "12:00am", series.Redisplay(series.Hour, "00:00"))
		assert.Equal(t, "1:05pm", series.Redisplay(series.Hour, "13:05"))
		assert.Equal(t, "12:30pm", series.Redisplay(series.Hour, "12:30"))
		assert.Equal(t, "9:01am", series.Redisplay(series.Hour, "09:01"))
	})

	t.Run("Should leave other periods unchanged", func(t *testing.T) {
		assert.Equal(t, "2:15pm", series.Redisplay(series.Day24, "2:15pm"))
		assert.Equal(t, "1/9", series.Redisplay(series.Week, "1/9"))
	})

	t.Run("Should leave malformed labels unchanged", func(t *testing.T) {
		assert.Equal(t, "noon", series.Redisplay(series.Hour, "noon"))
		assert.Equal(t, "25:00", series.Redisplay(series.Hour, "25:00"))
		assert.Equal(t, "10:xx", series.Redisplay(series.Hour, "10:xx"))
	})
}

func TestTooltip(t *testing.T) {
	assert.Equal(t, "Time: 1:05pm", series.Tooltip(series.Hour, "13:05"))
	assert.Equal(t, "Time: 2:15pm", series.Tooltip(series.Day24, "2:15pm"))
	assert.Equal(t, "Date: 1/9", series.Tooltip(series.Week, "1/9"))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "121.7V", series.ValueString(series.VoltageProfile, 121.7))
	assert.Equal(t, "1600W", series.ValueString(series.PowerProfile, 1600))
	assert.Equal(t, "12.5A", series.ValueString(series.CurrentProfile, 12.5))
}
