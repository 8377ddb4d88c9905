package main

import (
	"time"

	"github.com/jat99/PowerMonitor/internal/kafka"
	"github.com/jat99/PowerMonitor/internal/series"
)

// simulator synthesizes the readings of one meter from the diurnal model
type simulator struct {
	meterID string
	rng     series.RandomSource
	// outageAt and outageLen place a run of dead readings; outageLen 0 disables it
	outageAt  int
	outageLen int

	step   int
	energy float64
}

func newSimulator(meterID string, rng series.RandomSource, outageAt, outageLen int) *simulator {
	return &simulator{
		meterID:   meterID,
		rng:       rng,
		outageAt:  outageAt,
		outageLen: outageLen,
	}
}

// inOutage reports whether the current step falls inside the simulated outage
func (s *simulator) inOutage() bool {
	return s.outageLen > 0 && s.step >= s.outageAt && s.step < s.outageAt+s.outageLen
}

// next returns the reading at ts. interval is the time since the previous reading
// and drives the energy counter.
func (s *simulator) next(ts time.Time, interval time.Duration) kafka.MeasurementMessage {
	msg := kafka.MeasurementMessage{
		MeterID:   s.meterID,
		Timestamp: ts,
	}

	if !s.inOutage() {
		msg.Voltage = series.Synthesize(series.VoltageProfile, ts, s.rng)
		msg.Current = series.Synthesize(series.CurrentProfile, ts, s.rng)
		msg.Power = series.Synthesize(series.PowerProfile, ts, s.rng)
		msg.PF = series.Round(0.9+0.1*s.rng.Float64(), 2)
		s.energy += msg.Power * interval.Hours() / 1000
	}

	msg.Energy = series.Round(s.energy, 3)
	s.step++
	return msg
}
