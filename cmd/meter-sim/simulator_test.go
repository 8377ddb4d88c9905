package main

import (
	"testing"
	"time"

	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSimulator_Next(t *testing.T) {
	sim := newSimulator("meter-1", testutil.FixedRand(0.5), 3, 2)
	start := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

	var energy float64
	for i := 0; i < 8; i++ {
		msg := sim.next(start.Add(time.Duration(i)*time.Minute), time.Minute)
		assert.Equal(t, "meter-1", msg.MeterID)
		assert.GreaterOrEqual(t, msg.Energy, energy)
		energy = msg.Energy

		if i == 3 || i == 4 {
			assert.Zero(t, msg.Voltage, "step %d", i)
			assert.Zero(t, msg.Power, "step %d", i)
			continue
		}
		assert.Greater(t, msg.Voltage, 108.0, "step %d", i)
		assert.InDelta(t, 0.95, msg.PF, 0.001)
	}
	assert.Greater(t, energy, 0.0)
}

func TestSimulator_NoOutage(t *testing.T) {
	sim := newSimulator("meter-1", testutil.FixedRand(0.5), 0, 0)
	msg := sim.next(time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC), time.Minute)
	assert.NotZero(t, msg.Voltage)
}
