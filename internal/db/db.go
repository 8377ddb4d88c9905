package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pingTimeout bounds the connectivity check run on open and by the health endpoint
const pingTimeout = 5 * time.Second

// Database is the outage and measurement store
type Database struct {
	*gorm.DB
	logger *utils.Logger
	driver string
}

// NewDatabase opens a postgres or sqlite store depending on cfg.Driver and checks it answers
func NewDatabase(cfg *config.DatabaseConfig, log *utils.Logger) (*Database, error) {
	dbLogger := log.Named("database")

	dialector, err := openDialector(cfg, dbLogger)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(&logAdapter{logger: dbLogger}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		// Timestamps are stored in UTC; the monitor timezone only applies on display
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: gdb, logger: dbLogger, driver: cfg.Driver}
	if err := database.configurePool(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		return nil, err
	}

	dbLogger.Info("Database ready", zap.String("driver", cfg.Driver))
	return database, nil
}

func openDialector(cfg *config.DatabaseConfig, log *utils.Logger) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		log.Info("Connecting to postgres",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("dbname", cfg.DBName),
			zap.String("user", cfg.User))
		return postgres.Open(cfg.GetDSN()), nil
	case "sqlite":
		log.Info("Opening sqlite store", zap.String("path", cfg.Path))
		return sqlite.Open(cfg.GetDSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func (db *Database) configurePool() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if db.driver == "sqlite" {
		// One connection serializes the meter writes and keeps in-memory databases alive
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// Ping checks that the store answers within ctx
func (db *Database) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: database ping failed: %v", utils.ErrServiceUnavailable, err)
	}
	return nil
}

// Healthy reports whether the store answers within pingTimeout
func (db *Database) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		db.logger.Warn("Database health check failed", zap.Error(err))
		return false
	}
	return true
}

// AutoMigrate creates the outages and measurements tables. On postgres the
// measurements table becomes a TimescaleDB hypertable when the extension is available.
func (db *Database) AutoMigrate() error {
	if err := db.DB.AutoMigrate(&models.Outage{}, &models.Measurement{}); err != nil {
		return fmt.Errorf("failed to migrate outage and measurement tables: %w", err)
	}

	// At most one row may be Active; concurrent opens fail with a duplicate key
	singleActive := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (status) WHERE status = '%s'",
		models.SingleActiveOutageIndex, models.Outage{}.TableName(), outage.Active)
	if err := db.Exec(singleActive).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", models.SingleActiveOutageIndex, err)
	}

	if db.driver == "postgres" {
		if err := db.enableTimescale(); err != nil {
			db.logger.Warn("Measurements stay a plain table", zap.Error(err))
		}
	}

	db.logger.Info("Migrations applied")
	return nil
}

func (db *Database) enableTimescale() error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE").Error; err != nil {
		return fmt.Errorf("timescaledb unavailable: %w", err)
	}

	table := models.Measurement{}.TableName()
	if err := db.Exec("SELECT create_hypertable(?, 'timestamp', if_not_exists => TRUE, migrate_data => TRUE)", table).Error; err != nil {
		return fmt.Errorf("failed to create hypertable for %s: %w", table, err)
	}
	return nil
}

// Close closes the database connection
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	db.logger.Info("Database connection closed")
	return nil
}

// logAdapter routes GORM's log lines into zap, slow queries as warnings
type logAdapter struct {
	logger *utils.Logger
}

func (l *logAdapter) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	if strings.Contains(msg, "SLOW SQL") {
		l.logger.Warn(msg)
		return
	}
	l.logger.Info(msg)
}
