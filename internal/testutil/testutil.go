// Package testutil holds shared fixtures for package tests
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/db"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestSetup contains utilities for testing
type TestSetup struct {
	Router   *gin.Engine
	DB       *db.Database
	Logger   *utils.Logger
	Config   *config.Config
	Requires *require.Assertions
}

// NewTestSetup creates a migrated in-memory SQLite database private to t
func NewTestSetup(t *testing.T) *TestSetup {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := &utils.Logger{Logger: zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))}
	cfg := NewTestConfig()

	// Each test gets its own named shared-cache database
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.Database.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := db.NewDatabase(&cfg.Database, logger)
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, database.AutoMigrate(), "Failed to migrate test database")

	t.Cleanup(func() {
		_ = database.Close()
	})

	router := gin.New()
	router.Use(gin.Recovery())

	return &TestSetup{
		Router:   router,
		DB:       database,
		Logger:   logger,
		Config:   cfg,
		Requires: require.New(t),
	}
}

// NewTestConfig returns a configuration suitable for tests
func NewTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   "file::memory:?cache=shared",
		},
		Kafka: config.KafkaConfig{
			MeasurementTopic: "power-measurements",
			OutageTopic:      "outage-events",
		},
		JWT: config.JWTConfig{
			Secret:          "test-secret-key-for-testing-only",
			ExpirationHours: 1,
		},
		Log: config.LogConfig{Level: "warn", Format: "console"},
		Monitor: config.MonitorConfig{
			Timezone:              "UTC",
			SeriesSource:          config.SeriesSynthetic,
			RandomSeed:            42,
			NominalVoltage:        120,
			OutageThresholdVolts:  90,
			RestoreThresholdVolts: 108,
		},
		Source: config.SourceConfig{TimeoutSeconds: 2},
	}
}

// ExecuteRequest executes a test request and returns the response
func (ts *TestSetup) ExecuteRequest(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		ts.Requires.NoError(err, "Failed to marshal request body")
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	ts.Requires.NoError(err, "Failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp := httptest.NewRecorder()
	ts.Router.ServeHTTP(resp, req)
	return resp
}

// ParseResponse parses the JSON response into the provided struct
func (ts *TestSetup) ParseResponse(response *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(response.Body.Bytes(), target)
	ts.Requires.NoError(err, "Failed to parse response body: %s", response.Body.String())
}

// MustTime parses an RFC 3339 timestamp or panics
func MustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// FixedRand is a RandomSource that always returns the same draw
type FixedRand float64

// Float64 returns the fixed draw
func (f FixedRand) Float64() float64 { return float64(f) }
