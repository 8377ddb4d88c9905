package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db"
	"github.com/jat99/PowerMonitor/internal/db/repository"
	"github.com/jat99/PowerMonitor/internal/kafka"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// pruneInterval is how often old measurements are deleted when retention is set
const pruneInterval = time.Hour

// ServiceProvider manages all services for the application
type ServiceProvider struct {
	logger              *utils.Logger
	config              *config.Config
	database            *db.Database
	kafkaManager        *kafka.Manager
	kafkaHandler        *KafkaHandler
	outageService       *OutageService
	measurementService  *MeasurementService
	seriesService       *SeriesService
	notificationService *NotificationService
	registry            *outage.Registry
	cancel              context.CancelFunc
}

// NewServiceProvider creates a new service provider
func NewServiceProvider(
	logger *utils.Logger,
	config *config.Config,
	database *db.Database,
) *ServiceProvider {
	return &ServiceProvider{
		logger:   logger.Named("services"),
		config:   config,
		database: database,
	}
}

// Initialize initializes all services
func (sp *ServiceProvider) Initialize(ctx context.Context) error {
	var err error
	ctx, sp.cancel = context.WithCancel(ctx)

	loc, err := sp.config.Monitor.Location()
	if err != nil {
		return fmt.Errorf("invalid monitor timezone: %w", err)
	}

	repoFactory := repository.NewRepositoryFactory(sp.database.DB)

	sp.notificationService = NewNotificationService(sp.logger)
	sp.logger.Info("Notification service initialized")

	publishers := Publishers{sp.notificationService}

	if sp.config.Kafka.Enabled {
		sp.kafkaManager, err = kafka.NewManager(&sp.config.Kafka, sp.logger)
		if err != nil {
			return fmt.Errorf("failed to create Kafka manager: %w", err)
		}
	}

	// The Kafka handler is built before the outage service so it can receive its events
	sp.kafkaHandler = NewKafkaHandler(sp.logger, sp.kafkaManager, nil)
	publishers = append(publishers, sp.kafkaHandler)

	sp.outageService = NewOutageService(repoFactory.Outage(), loc, publishers, sp.logger)
	sp.registry = outage.NewRegistry(sp.outageService, loc)
	sp.logger.Info("Outage service initialized", zap.String("timezone", loc.String()))

	sp.measurementService = NewMeasurementService(repoFactory.Measurement(), sp.outageService, sp.config.Monitor, sp.logger)
	sp.kafkaHandler.ingester = sp.measurementService
	sp.logger.Info("Measurement service initialized",
		zap.Float64("outage_threshold_volts", sp.config.Monitor.OutageThresholdVolts),
		zap.Float64("restore_threshold_volts", sp.config.Monitor.RestoreThresholdVolts))

	sp.seriesService, err = NewSeriesService(
		sp.config.Monitor.SeriesSource,
		series.NewLockedSource(sp.config.Monitor.RandomSeed),
		series.SystemClock{Location: loc},
		sp.measurementService,
		sp.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create series service: %w", err)
	}
	sp.logger.Info("Series service initialized", zap.String("mode", sp.config.Monitor.SeriesSource))

	if sp.kafkaManager != nil {
		if err = sp.kafkaHandler.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize Kafka handler: %w", err)
		}
		if err = sp.kafkaManager.Start(); err != nil {
			return fmt.Errorf("failed to start Kafka manager: %w", err)
		}
		sp.logger.Info("Kafka manager started")
	}

	if retention := sp.config.Monitor.Retention(); retention > 0 {
		go sp.pruneLoop(ctx, retention)
	}

	sp.logger.Info("All services initialized successfully")
	return nil
}

func (sp *ServiceProvider) pruneLoop(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		if _, err := sp.measurementService.Prune(ctx, retention); err != nil {
			sp.logger.Error("Failed to prune measurements", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown performs a graceful shutdown of all services
func (sp *ServiceProvider) Shutdown() error {
	sp.logger.Info("Shutting down services")

	if sp.cancel != nil {
		sp.cancel()
	}

	if sp.kafkaManager != nil && sp.kafkaManager.IsRunning() {
		sp.logger.Info("Stopping Kafka manager")
		if err := sp.kafkaManager.Stop(); err != nil {
			sp.logger.Error("Failed to stop Kafka manager", zap.Error(err))
		}
	}

	if sp.notificationService != nil {
		sp.notificationService.Stop()
	}

	sp.logger.Info("Services shut down successfully")
	return nil
}

// GetDatabase returns the store the services write to
func (sp *ServiceProvider) GetDatabase() *db.Database {
	return sp.database
}

// GetKafkaManager returns the Kafka manager, nil when Kafka is disabled
func (sp *ServiceProvider) GetKafkaManager() *kafka.Manager {
	return sp.kafkaManager
}

// GetOutageService returns the outage service
func (sp *ServiceProvider) GetOutageService() *OutageService {
	return sp.outageService
}

// GetOutageRegistry returns the registry listing stored outages
func (sp *ServiceProvider) GetOutageRegistry() *outage.Registry {
	return sp.registry
}

// GetMeasurementService returns the measurement service
func (sp *ServiceProvider) GetMeasurementService() *MeasurementService {
	return sp.measurementService
}

// GetSeriesService returns the series service
func (sp *ServiceProvider) GetSeriesService() *SeriesService {
	return sp.seriesService
}

// GetNotificationService returns the notification service
func (sp *ServiceProvider) GetNotificationService() *NotificationService {
	return sp.notificationService
}
