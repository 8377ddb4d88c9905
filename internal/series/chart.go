package series

import (
	"time"
)

// Point is the {time, value} pair handed to a rendering widget
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// TooltipText holds the heading and value text shown when hovering a point
type TooltipText struct {
	Heading string `json:"heading"`
	Value   string `json:"value"`
}

// Chart is a fully labeled series ready for rendering
type Chart struct {
	Quantity   Quantity      `json:"quantity"`
	Label      string        `json:"label"`
	Unit       string        `json:"unit"`
	Period     Period        `json:"period"`
	Title      string        `json:"title"`
	Points     []Point       `json:"points"`
	Ticks      []string      `json:"ticks"`
	AxisLabels []string      `json:"axis_labels"`
	Tooltips   []TooltipText `json:"tooltips"`
	From       *time.Time    `json:"from,omitempty"`
	To         *time.Time    `json:"to,omitempty"`
}

// BuildChart labels a series for the period and selects its ticks
func BuildChart(period Period, profile QuantityProfile, readings []Reading) (*Chart, error) {
	spec, err := Lookup(period)
	if err != nil {
		return nil, err
	}

	chart := &Chart{
		Quantity: profile.Quantity,
		Label:    profile.Label,
		Unit:     profile.UnitSuffix,
		Period:   period,
		Title:    spec.Title,
		Points:   make([]Point, len(readings)),
		Tooltips: make([]TooltipText, len(readings)),
		Ticks:    Ticks(period, readings),
	}
	for i, r := range readings {
		chart.Points[i] = Point{Time: r.Label, Value: r.Value}
		chart.Tooltips[i] = TooltipText{
			Heading: Tooltip(period, r.Label),
			Value:   ValueString(profile, r.Value),
		}
	}

	chart.AxisLabels = make([]string, len(chart.Ticks))
	for i, tick := range chart.Ticks {
		chart.AxisLabels[i] = Redisplay(period, tick)
	}

	if n := len(readings); n > 0 && !readings[0].Instant.IsZero() {
		from, to := readings[0].Instant, readings[n-1].Instant
		chart.From, chart.To = &from, &to
	}
	return chart, nil
}

// Values extracts the numeric values of a series
func Values(readings []Reading) []float64 {
	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}
	return values
}
