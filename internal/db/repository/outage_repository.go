package repository

import (
	"context"
	"time"

	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/outage"
	"gorm.io/gorm"
)

// OutageRepository defines operations for managing stored outages
type OutageRepository interface {
	Repository
	Create(ctx context.Context, o *models.Outage) error
	GetByID(ctx context.Context, id uint) (*models.Outage, error)
	GetActive(ctx context.Context) (*models.Outage, error)
	GetLatest(ctx context.Context) (*models.Outage, error)
	Update(ctx context.Context, o *models.Outage) error
	// ListStartedBetween returns outages with from <= start_time < to, newest first.
	// Zero bounds are open.
	ListStartedBetween(ctx context.Context, from, to time.Time) ([]models.Outage, error)
	// Transaction runs fn against a repository bound to one transaction
	Transaction(ctx context.Context, fn func(repo OutageRepository) error) error
}

// outageRepository implements OutageRepository
type outageRepository struct {
	BaseRepository
}

// NewOutageRepository creates a new outage repository
func NewOutageRepository(db *gorm.DB) OutageRepository {
	return &outageRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new outage
func (r *outageRepository) Create(ctx context.Context, o *models.Outage) error {
	return r.handleError(r.withContext(ctx).Create(o).Error)
}

// GetByID retrieves an outage by its id
func (r *outageRepository) GetByID(ctx context.Context, id uint) (*models.Outage, error) {
	var o models.Outage
	if err := r.withContext(ctx).First(&o, id).Error; err != nil {
		return nil, r.handleError(err)
	}
	return &o, nil
}

// GetActive retrieves the most recent active outage
func (r *outageRepository) GetActive(ctx context.Context) (*models.Outage, error) {
	var o models.Outage
	err := r.withContext(ctx).
		Where("status = ?", outage.Active.String()).
		Order("id desc").
		First(&o).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &o, nil
}

// GetLatest retrieves the outage with the highest id
func (r *outageRepository) GetLatest(ctx context.Context) (*models.Outage, error) {
	var o models.Outage
	if err := r.withContext(ctx).Order("id desc").First(&o).Error; err != nil {
		return nil, r.handleError(err)
	}
	return &o, nil
}

// Update saves all fields of an existing outage
func (r *outageRepository) Update(ctx context.Context, o *models.Outage) error {
	result := r.withContext(ctx).Model(o).Select("*").Updates(o)
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStartedBetween lists outages by start time
func (r *outageRepository) ListStartedBetween(ctx context.Context, from, to time.Time) ([]models.Outage, error) {
	query := r.withContext(ctx)
	if !from.IsZero() {
		query = query.Where("start_time >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("start_time < ?", to.UTC())
	}

	var outages []models.Outage
	if err := query.Order("start_time desc").Order("id desc").Find(&outages).Error; err != nil {
		return nil, r.handleError(err)
	}
	return outages, nil
}

// Transaction runs fn inside a database transaction
func (r *outageRepository) Transaction(ctx context.Context, fn func(repo OutageRepository) error) error {
	return r.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewOutageRepository(tx))
	})
}
