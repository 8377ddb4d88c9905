package repository

import "gorm.io/gorm"

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db              *gorm.DB
	outageRepo      OutageRepository
	measurementRepo MeasurementRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

// Outage returns the outage repository
func (f *RepositoryFactory) Outage() OutageRepository {
	if f.outageRepo == nil {
		f.outageRepo = NewOutageRepository(f.db)
	}
	return f.outageRepo
}

// Measurement returns the measurement repository
func (f *RepositoryFactory) Measurement() MeasurementRepository {
	if f.measurementRepo == nil {
		f.measurementRepo = NewMeasurementRepository(f.db)
	}
	return f.measurementRepo
}
