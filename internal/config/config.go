package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Source   SourceConfig   `mapstructure:"source"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	Environment  string `mapstructure:"environment"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
	// Path is the SQLite database file (or DSN) when Driver is "sqlite"
	Path string `mapstructure:"path"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Brokers          string `mapstructure:"brokers"`
	ConsumerGroup    string `mapstructure:"consumer_group"`
	SecurityEnable   bool   `mapstructure:"security_enable"`
	SecurityUser     string `mapstructure:"security_user"`
	SecurityPass     string `mapstructure:"security_pass"`
	MeasurementTopic string `mapstructure:"measurement_topic"`
	OutageTopic      string `mapstructure:"outage_topic"`
}

// JWTConfig holds the signing configuration of device ingest tokens
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MonitorConfig holds the series and outage detection settings
type MonitorConfig struct {
	Timezone              string  `mapstructure:"timezone"`
	SeriesSource          string  `mapstructure:"series_source"`
	RandomSeed            int64   `mapstructure:"random_seed"`
	NominalVoltage        float64 `mapstructure:"nominal_voltage"`
	OutageThresholdVolts  float64 `mapstructure:"outage_threshold_volts"`
	RestoreThresholdVolts float64 `mapstructure:"restore_threshold_volts"`
	// RetentionDays bounds how long measurements are kept; 0 keeps them forever
	RetentionDays         int     `mapstructure:"retention_days"`
}

// Retention returns the measurement retention window, zero when unbounded
func (c *MonitorConfig) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SourceConfig points at a remote outage API
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

const (
	// SeriesSynthetic samples charts from the diurnal model
	SeriesSynthetic = "synthetic"
	// SeriesLive charts stored measurements
	SeriesLive = "live"
)

// LoadConfig loads the application configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default configuration file path if not provided
	if configPath == "" {
		configPath = "./config"
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// POWERMONITOR_DATABASE_DRIVER overrides database.driver
	v.SetEnvPrefix("POWERMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env vars still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15)  // seconds
	v.SetDefault("server.write_timeout", 15) // seconds
	v.SetDefault("server.idle_timeout", 60)  // seconds
	v.SetDefault("server.environment", "development")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "powermonitor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.path", "database.db")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "kafka:9092")
	v.SetDefault("kafka.consumer_group", "powermonitor")
	v.SetDefault("kafka.security_enable", false)
	v.SetDefault("kafka.measurement_topic", "power-measurements")
	v.SetDefault("kafka.outage_topic", "outage-events")

	// JWT defaults
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24*365)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// Monitor defaults
	v.SetDefault("monitor.timezone", "Local")
	v.SetDefault("monitor.series_source", SeriesSynthetic)
	v.SetDefault("monitor.random_seed", 0)
	v.SetDefault("monitor.nominal_voltage", 120.0)
	v.SetDefault("monitor.outage_threshold_volts", 90.0)
	v.SetDefault("monitor.restore_threshold_volts", 108.0)
	v.SetDefault("monitor.retention_days", 0)

	// Outage source defaults
	v.SetDefault("source.base_url", "http://localhost:8001/api")
	v.SetDefault("source.timeout_seconds", 10)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.JWT.Secret == "" {
		// In development mode, set a default secret
		if config.Server.Environment == "development" {
			config.JWT.Secret = "development-jwt-secret-key-change-in-production"
		} else {
			return fmt.Errorf("JWT secret is required in non-development environments")
		}
	}

	switch config.Database.Driver {
	case "sqlite":
		if config.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case "postgres":
		if config.Database.Password == "" {
			if dbPassword := os.Getenv("POWERMONITOR_DATABASE_PASSWORD"); dbPassword != "" {
				config.Database.Password = dbPassword
			} else if config.Server.Environment != "development" {
				return fmt.Errorf("database password is required in non-development environments")
			}
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	switch config.Monitor.SeriesSource {
	case SeriesSynthetic, SeriesLive:
	default:
		return fmt.Errorf("unsupported series source %q", config.Monitor.SeriesSource)
	}

	if _, err := config.Monitor.Location(); err != nil {
		return fmt.Errorf("invalid monitor timezone: %w", err)
	}

	if config.Monitor.OutageThresholdVolts >= config.Monitor.RestoreThresholdVolts {
		return fmt.Errorf("outage threshold (%.1fV) must be below restore threshold (%.1fV)",
			config.Monitor.OutageThresholdVolts, config.Monitor.RestoreThresholdVolts)
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone)
}

// Location resolves the monitor timezone used for labels and query days
func (c *MonitorConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Timeout returns the outage source request timeout
func (c *SourceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IsProduction returns true if the environment is production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if the environment is test
func (c *ServerConfig) IsTest() bool {
	return c.Environment == "test"
}

// Address returns the host:port the server listens on
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
