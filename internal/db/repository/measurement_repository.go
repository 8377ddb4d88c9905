package repository

import (
	"context"
	"time"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MeasurementRepository defines operations for managing meter readings
type MeasurementRepository interface {
	Repository
	Insert(ctx context.Context, m *models.Measurement) error
	// InsertBatch stores readings in one transaction. Readings already stored
	// for the same meter and timestamp are skipped, so a redelivered batch succeeds.
	InsertBatch(ctx context.Context, ms []models.Measurement) error
	// GetWindow returns readings with start <= timestamp <= end, oldest first
	GetWindow(ctx context.Context, start, end time.Time) ([]models.Measurement, error)
	GetLatest(ctx context.Context) (*models.Measurement, error)
	// List returns one page of readings, newest first, plus the total count
	List(ctx context.Context, page utils.PaginationRequest) ([]models.Measurement, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// measurementRepository implements MeasurementRepository
type measurementRepository struct {
	BaseRepository
}

// NewMeasurementRepository creates a new measurement repository
func NewMeasurementRepository(db *gorm.DB) MeasurementRepository {
	return &measurementRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert stores a single reading
func (r *measurementRepository) Insert(ctx context.Context, m *models.Measurement) error {
	m.Timestamp = m.Timestamp.UTC()
	return r.handleError(r.withContext(ctx).Create(m).Error)
}

// InsertBatch stores readings in one transaction, skipping duplicates
func (r *measurementRepository) InsertBatch(ctx context.Context, ms []models.Measurement) error {
	if len(ms) == 0 {
		return nil
	}
	for i := range ms {
		ms[i].Timestamp = ms[i].Timestamp.UTC()
	}

	tx := r.withContext(ctx).Begin()
	if tx.Error != nil {
		return r.handleError(tx.Error)
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(ms, 100).Error; err != nil {
		tx.Rollback()
		return r.handleError(err)
	}

	return r.handleError(tx.Commit().Error)
}

// GetWindow retrieves readings inside a time window
func (r *measurementRepository) GetWindow(ctx context.Context, start, end time.Time) ([]models.Measurement, error) {
	var data []models.Measurement
	err := r.withContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&data).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return data, nil
}

// GetLatest retrieves the newest reading
func (r *measurementRepository) GetLatest(ctx context.Context) (*models.Measurement, error) {
	var m models.Measurement
	if err := r.withContext(ctx).Order("timestamp desc").First(&m).Error; err != nil {
		return nil, r.handleError(err)
	}
	return &m, nil
}

// List pages through readings
func (r *measurementRepository) List(ctx context.Context, page utils.PaginationRequest) ([]models.Measurement, int64, error) {
	var total int64
	if err := r.withContext(ctx).Model(&models.Measurement{}).Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	var data []models.Measurement
	query := utils.ApplyPagination(r.withContext(ctx).Order("timestamp desc"), page)
	if err := query.Find(&data).Error; err != nil {
		return nil, 0, r.handleError(err)
	}
	return data, total, nil
}

// DeleteBefore removes readings older than cutoff
func (r *measurementRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.withContext(ctx).Where("timestamp < ?", cutoff.UTC()).Delete(&models.Measurement{})
	if result.Error != nil {
		return 0, r.handleError(result.Error)
	}
	return result.RowsAffected, nil
}
