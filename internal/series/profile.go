package series

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrUnknownQuantity is returned for a quantity without a profile
var ErrUnknownQuantity = errors.New("unknown quantity")

// Quantity names a monitored physical quantity
type Quantity string

const (
	Voltage Quantity = "voltage"
	Current Quantity = "current"
	Power   Quantity = "power"
	// Energy is derived from the power series rather than synthesized
	Energy Quantity = "energy"
)

// QuantityProfile governs synthesis and display of one quantity
type QuantityProfile struct {
	Quantity         Quantity `json:"quantity"`
	Label            string   `json:"label"`
	Base             float64  `json:"base"`
	Amplitude        float64  `json:"amplitude"`
	NoiseSpan        float64  `json:"noise_span"`
	RoundingDecimals int      `json:"rounding_decimals"`
	UnitSuffix       string   `json:"unit_suffix"`
}

var (
	VoltageProfile = QuantityProfile{Quantity: Voltage, Label: "Voltage", Base: 120, Amplitude: 2, NoiseSpan: 3, RoundingDecimals: 1, UnitSuffix: "V"}
	CurrentProfile = QuantityProfile{Quantity: Current, Label: "Current", Base: 12, Amplitude: 3, NoiseSpan: 2, RoundingDecimals: 1, UnitSuffix: "A"}
	PowerProfile   = QuantityProfile{Quantity: Power, Label: "Power", Base: 1200, Amplitude: 400, NoiseSpan: 200, RoundingDecimals: 0, UnitSuffix: "W"}
	EnergyProfile  = QuantityProfile{Quantity: Energy, Label: "Energy", RoundingDecimals: 2, UnitSuffix: "kWh"}
)

// ProfileFor returns the profile registered for a quantity name
func ProfileFor(name string) (QuantityProfile, error) {
	switch Quantity(name) {
	case Voltage:
		return VoltageProfile, nil
	case Current:
		return CurrentProfile, nil
	case Power:
		return PowerProfile, nil
	case Energy:
		return EnergyProfile, nil
	}
	return QuantityProfile{}, fmt.Errorf("%w: %q", ErrUnknownQuantity, name)
}

// RandomSource yields uniform values in [0, 1)
type RandomSource interface {
	Float64() float64
}

// Clock supplies the sampling instant
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant
type FixedClock time.Time

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// lockedSource serializes access to a *rand.Rand, which is not safe for concurrent use
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedSource returns a goroutine-safe RandomSource seeded with seed.
// A zero seed uses the current time.
func NewLockedSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}
