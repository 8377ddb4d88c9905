package services

import (
	"context"
	"testing"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLiveSeriesPerformance charts a week of one-minute readings from the store
func TestLiveSeriesPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	measurements, _, _ := newMeasurementService(t)
	ctx := context.Background()
	now := testutil.MustTime("2024-01-15T10:00:00Z")

	const minutes = 7 * 24 * 60
	rng := testutil.FixedRand(0.5)
	batch := make([]models.Measurement, 0, minutes)
	for i := minutes - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Minute)
		batch = append(batch, models.Measurement{
			MeterID:   models.DefaultMeterID,
			Timestamp: ts,
			Voltage:   series.Synthesize(series.VoltageProfile, ts, rng),
			Current:   series.Synthesize(series.CurrentProfile, ts, rng),
			Power:     series.Synthesize(series.PowerProfile, ts, rng),
			PF:        0.97,
		})
	}

	start := time.Now()
	require.NoError(t, measurements.IngestBatch(ctx, batch))
	t.Logf("Ingested %d readings in %v", minutes, time.Since(start))

	svc, err := NewSeriesService(config.SeriesLive, rng, series.FixedClock(now), measurements, utils.NewNopLogger())
	require.NoError(t, err)

	testCases := []struct {
		name   string
		period series.Period
		points int
	}{
		{"Last hour", series.Hour, 60},
		{"Last 24 hours", series.Day24, 96},
		{"Last week", series.Week, 7},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			startQuery := time.Now()
			chart, err := svc.Chart(ctx, "voltage", tc.period)
			queryDuration := time.Since(startQuery)

			require.NoError(t, err)
			assert.Len(t, chart.Points, tc.points)

			t.Logf("Chart time for %s: %v", tc.name, queryDuration)
			assert.Less(t, queryDuration, 2*time.Second, "Chart should build in under 2s")
		})
	}
}
