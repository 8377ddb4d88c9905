package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jat99/PowerMonitor/internal/utils"
	"gorm.io/gorm"
)

// Common repository errors. ErrNotFound and ErrConflict share the API sentinels
// so handlers can map them without importing this package.
var (
	ErrNotFound = utils.ErrNotFound
	ErrConflict = utils.ErrAlreadyExists
	ErrDatabase = errors.New("database error")
)

// Repository defines the basic repository interface
type Repository interface {
	// GetDB returns the underlying database connection
	GetDB() *gorm.DB
}

// BaseRepository provides common functionality for repositories
type BaseRepository struct {
	db *gorm.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the underlying database connection
func (r *BaseRepository) GetDB() *gorm.DB {
	return r.db
}

// withContext binds a request context to the connection
func (r *BaseRepository) withContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// handleError converts GORM errors to repository errors
func (r *BaseRepository) handleError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	return fmt.Errorf("%w: %v", ErrDatabase, err)
}
