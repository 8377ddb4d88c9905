package series

// DeriveEnergy integrates a power series (W) into cumulative energy (kWh).
// Each reading contributes its power over the time elapsed since the previous one;
// the first reading is credited with one full period interval.
func DeriveEnergy(period Period, power []Reading) ([]Reading, error) {
	spec, err := Lookup(period)
	if err != nil {
		return nil, err
	}

	energy := make([]Reading, len(power))
	total := 0.0
	for i, r := range power {
		hours := spec.Interval.Hours()
		if i > 0 && !r.Instant.IsZero() && !power[i-1].Instant.IsZero() {
			hours = r.Instant.Sub(power[i-1].Instant).Hours()
		}
		total += r.Value * hours / 1000
		energy[i] = Reading{
			Label:   r.Label,
			Value:   Round(total, EnergyProfile.RoundingDecimals),
			Instant: r.Instant,
		}
	}
	return energy, nil
}
