package series

import (
	"math"
	"time"
)

// Reading is one timestamped, labeled value of a monitored quantity
type Reading struct {
	Label   string    `json:"time"`
	Value   float64   `json:"value"`
	Instant time.Time `json:"instant"`
}

// Sample synthesizes period.PointCount readings ending at now.
//
// Point i (0 = oldest) sits intervalsAgo = PointCount-1-i intervals before now, so
// instants strictly increase and the last one equals now. Each value follows a diurnal
// sinusoid around the profile base plus uniform noise drawn from rng.
func Sample(period Period, profile QuantityProfile, now time.Time, rng RandomSource) ([]Reading, error) {
	spec, err := Lookup(period)
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, spec.PointCount)
	for i := range readings {
		intervalsAgo := spec.PointCount - 1 - i
		instant := now.Add(-time.Duration(intervalsAgo) * spec.Interval)
		readings[i] = Reading{
			Label:   labelFor(period, instant),
			Value:   Synthesize(profile, instant, rng),
			Instant: instant,
		}
	}
	return readings, nil
}

// Resolve passes a caller-supplied series through untouched, or samples one when none is given
func Resolve(supplied []Reading, period Period, profile QuantityProfile, now time.Time, rng RandomSource) ([]Reading, error) {
	if supplied != nil {
		return supplied, nil
	}
	return Sample(period, profile, now, rng)
}

// Synthesize produces a single plausible value of the profile's quantity at instant
func Synthesize(profile QuantityProfile, instant time.Time, rng RandomSource) float64 {
	hour := float64(instant.Hour())
	variation := math.Sin((hour-6)*math.Pi/12) * profile.Amplitude
	noise := (rng.Float64() - 0.5) * profile.NoiseSpan
	return Round(profile.Base+variation+noise, profile.RoundingDecimals)
}

// Round rounds half up to the given number of decimals
func Round(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Floor(v + 0.5)
	}
	f := math.Pow(10, float64(decimals))
	return math.Floor(v*f+0.5) / f
}

// Bounds returns the closed interval every synthesized value of the profile falls into
func Bounds(profile QuantityProfile) (low, high float64) {
	spread := profile.Amplitude + profile.NoiseSpan/2
	return profile.Base - spread, profile.Base + spread
}
