package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// MeasurementWindow is the slice of MeasurementService the live series mode reads from
type MeasurementWindow interface {
	Window(ctx context.Context, start, end time.Time) ([]models.Measurement, error)
}

// SeriesService builds labeled charts, either synthesized or from stored measurements
type SeriesService struct {
	mode         string
	rng          series.RandomSource
	clock        series.Clock
	measurements MeasurementWindow
	logger       *utils.Logger
}

// NewSeriesService creates a new series service. measurements may be nil in synthetic mode.
func NewSeriesService(mode string, rng series.RandomSource, clock series.Clock, measurements MeasurementWindow, logger *utils.Logger) (*SeriesService, error) {
	switch mode {
	case config.SeriesSynthetic:
	case config.SeriesLive:
		if measurements == nil {
			return nil, fmt.Errorf("live series mode requires a measurement store")
		}
	default:
		return nil, fmt.Errorf("unsupported series source %q", mode)
	}
	return &SeriesService{
		mode:         mode,
		rng:          rng,
		clock:        clock,
		measurements: measurements,
		logger:       logger.Named("series_service"),
	}, nil
}

// Periods returns the period catalog
func (s *SeriesService) Periods() []series.PeriodSpec {
	return series.Periods()
}

// Chart builds the chart of quantity over period. Every call produces a fresh series.
func (s *SeriesService) Chart(ctx context.Context, quantity string, period series.Period) (*series.Chart, error) {
	profile, err := series.ProfileFor(quantity)
	if err != nil {
		return nil, err
	}
	if _, err := series.Lookup(period); err != nil {
		return nil, err
	}

	source := profile
	if profile.Quantity == series.Energy {
		source = series.PowerProfile
	}

	readings, err := s.readings(ctx, source, period)
	if err != nil {
		return nil, err
	}

	if profile.Quantity == series.Energy {
		if readings, err = series.DeriveEnergy(period, readings); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Built chart",
		zap.String("quantity", quantity),
		zap.String("period", period.String()),
		zap.String("mode", s.mode),
		zap.Int("points", len(readings)))
	return series.BuildChart(period, profile, readings)
}

func (s *SeriesService) readings(ctx context.Context, profile series.QuantityProfile, period series.Period) ([]series.Reading, error) {
	now := s.clock.Now()
	var supplied []series.Reading
	if s.mode == config.SeriesLive {
		var err error
		if supplied, err = s.live(ctx, profile, period, now); err != nil {
			return nil, err
		}
	}
	return series.Resolve(supplied, period, profile, now, s.rng)
}

// live averages the stored readings into the period's buckets. Bucket i covers
// (instant_i - interval, instant_i]; empty buckets are skipped.
func (s *SeriesService) live(ctx context.Context, profile series.QuantityProfile, period series.Period, now time.Time) ([]series.Reading, error) {
	spec, err := series.Lookup(period)
	if err != nil {
		return nil, err
	}

	start := now.Add(-spec.Window())
	rows, err := s.measurements.Window(ctx, start, now)
	if err != nil {
		return nil, err
	}

	sums := make([]float64, spec.PointCount)
	counts := make([]int, spec.PointCount)
	for _, row := range rows {
		intervalsAgo := int(now.Sub(row.Timestamp) / spec.Interval)
		idx := spec.PointCount - 1 - intervalsAgo
		if idx < 0 || idx >= spec.PointCount {
			continue
		}
		sums[idx] += quantityOf(profile.Quantity, row)
		counts[idx]++
	}

	readings := make([]series.Reading, 0, spec.PointCount)
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		instant := now.Add(-time.Duration(spec.PointCount-1-i) * spec.Interval)
		label, err := series.LabelFor(period, instant)
		if err != nil {
			return nil, err
		}
		readings = append(readings, series.Reading{
			Label:   label,
			Value:   series.Round(sums[i]/float64(counts[i]), profile.RoundingDecimals),
			Instant: instant,
		})
	}
	return readings, nil
}

func quantityOf(q series.Quantity, m models.Measurement) float64 {
	switch q {
	case series.Voltage:
		return m.Voltage
	case series.Current:
		return m.Current
	case series.Energy:
		return m.Energy
	default:
		return m.Power
	}
}
