package series

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for a period outside the catalog
var ErrInvalidPeriod = errors.New("invalid period")

// Period selects the time window a chart displays
type Period int

const (
	// Hour is the last hour at one-minute resolution
	Hour Period = iota + 1
	// Day24 is the last 24 hours at 15-minute resolution
	Day24
	// Week is the last seven days at daily resolution
	Week
)

// PeriodSpec describes the cardinality and spacing of a period
type PeriodSpec struct {
	Period     Period        `json:"-"`
	Name       string        `json:"name"`
	Title      string        `json:"title"`
	PointCount int           `json:"point_count"`
	Interval   time.Duration `json:"-"`
	IntervalMs int64         `json:"interval_ms"`
	TickEvery  int           `json:"tick_every"`
}

// Window returns the total time span covered by the period
func (s PeriodSpec) Window() time.Duration {
	return time.Duration(s.PointCount) * s.Interval
}

var catalog = map[Period]PeriodSpec{
	Hour: {
		Period:     Hour,
		Name:       "hour",
		Title:      "Last Hour",
		PointCount: 60,
		Interval:   time.Minute,
		IntervalMs: 60_000,
		TickEvery:  10,
	},
	Day24: {
		Period:     Day24,
		Name:       "24hours",
		Title:      "Last 24 Hours",
		PointCount: 96,
		Interval:   15 * time.Minute,
		IntervalMs: 900_000,
		TickEvery:  8,
	},
	Week: {
		Period:     Week,
		Name:       "week",
		Title:      "Last Week",
		PointCount: 7,
		Interval:   24 * time.Hour,
		IntervalMs: 86_400_000,
		TickEvery:  1,
	},
}

// Lookup resolves a period to its catalog entry
func Lookup(p Period) (PeriodSpec, error) {
	spec, ok := catalog[p]
	if !ok {
		return PeriodSpec{}, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return spec, nil
}

// Periods returns the catalog in display order
func Periods() []PeriodSpec {
	return []PeriodSpec{catalog[Hour], catalog[Day24], catalog[Week]}
}

// ParsePeriod maps a wire name ("hour", "24hours", "week") to a Period
func ParsePeriod(name string) (Period, error) {
	for p, spec := range catalog {
		if spec.Name == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, name)
}

// String returns the wire name of the period
func (p Period) String() string {
	if spec, ok := catalog[p]; ok {
		return spec.Name
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	spec, err := Lookup(p)
	if err != nil {
		return nil, err
	}
	return []byte(spec.Name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
