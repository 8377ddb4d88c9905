package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/db/repository"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// VoltageLossCause is recorded on outages opened by the detector
const VoltageLossCause = "Voltage loss detected"

// MeasurementService stores meter readings and detects outages from their voltage
type MeasurementService struct {
	repo    repository.MeasurementRepository
	outages *OutageService
	config  config.MonitorConfig
	logger  *utils.Logger

	// mu serializes detection so readings are evaluated in arrival order
	mu          sync.Mutex
	lastHealthy float64
	// evaluated is the newest reading per meter that detection has finished with
	evaluated map[string]time.Time
}

// NewMeasurementService creates a new measurement service
func NewMeasurementService(repo repository.MeasurementRepository, outages *OutageService, cfg config.MonitorConfig, logger *utils.Logger) *MeasurementService {
	return &MeasurementService{
		repo:        repo,
		outages:     outages,
		config:      cfg,
		logger:      logger.Named("measurement_service"),
		lastHealthy: cfg.NominalVoltage,
		evaluated:   make(map[string]time.Time),
	}
}

// Ingest stores one reading and runs outage detection on it
func (s *MeasurementService) Ingest(ctx context.Context, m models.Measurement) error {
	return s.IngestBatch(ctx, []models.Measurement{m})
}

// IngestBatch stores readings in one transaction, then runs detection on them oldest first.
// Detection resumes after the last reading it finished, so retrying a batch
// whose detection failed re-evaluates only the readings that were not handled.
func (s *MeasurementService) IngestBatch(ctx context.Context, batch []models.Measurement) error {
	if len(batch) == 0 {
		return nil
	}

	for i := range batch {
		if batch[i].Timestamp.IsZero() {
			return fmt.Errorf("%w: reading %d has no timestamp", utils.ErrValidation, i)
		}
		if batch[i].MeterID == "" {
			batch[i].MeterID = models.DefaultMeterID
		}
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range batch {
		if !m.Timestamp.After(s.evaluated[m.MeterID]) {
			continue
		}
		if err := s.detect(ctx, m); err != nil {
			return err
		}
		s.evaluated[m.MeterID] = m.Timestamp
	}
	return nil
}

// detect opens an outage when voltage drops below the outage threshold and
// resolves it once voltage recovers to the restore threshold. Readings in
// between leave the state unchanged.
func (s *MeasurementService) detect(ctx context.Context, m models.Measurement) error {
	switch {
	case m.Voltage < s.config.OutageThresholdVolts:
		_, err := s.outages.Open(ctx, m.Timestamp, s.lastHealthy, VoltageLossCause)
		if err == nil {
			s.logger.Warn("Voltage loss detected",
				zap.String("meter_id", m.MeterID),
				zap.Float64("voltage", m.Voltage),
				zap.Float64("voltage_before", s.lastHealthy))
			return nil
		}
		if errors.Is(err, outage.ErrAlreadyActive) {
			return nil
		}
		return fmt.Errorf("failed to open outage: %w", err)

	case m.Voltage >= s.config.RestoreThresholdVolts:
		s.lastHealthy = m.Voltage
		if _, _, err := s.outages.ResolveActive(ctx, m.Timestamp, m.Voltage); err != nil {
			return fmt.Errorf("failed to resolve outage: %w", err)
		}
	}
	return nil
}

// Window returns stored readings with start <= timestamp <= end, oldest first
func (s *MeasurementService) Window(ctx context.Context, start, end time.Time) ([]models.Measurement, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: window end before start", utils.ErrBadRequest)
	}
	return s.repo.GetWindow(ctx, start, end)
}

// Page lists stored readings newest first
func (s *MeasurementService) Page(ctx context.Context, page utils.PaginationRequest) (utils.PaginatedResponse, error) {
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return utils.PaginatedResponse{}, err
	}
	return utils.NewPaginatedResponse(items, page, total), nil
}

// Latest returns the newest stored reading
func (s *MeasurementService) Latest(ctx context.Context) (*models.Measurement, error) {
	return s.repo.GetLatest(ctx)
}

// Prune deletes readings older than retention
func (s *MeasurementService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned old measurements", zap.Int64("deleted", n))
	}
	return n, nil
}
