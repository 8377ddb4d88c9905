package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jat99/PowerMonitor/internal/db/models"
	"github.com/jat99/PowerMonitor/internal/services"
	"github.com/jat99/PowerMonitor/internal/utils"
)

// maxBatchSize caps the readings accepted in one request
const maxBatchSize = 1000

// MeasurementRequest is one meter reading. Timestamp defaults to now.
type MeasurementRequest struct {
	Timestamp *time.Time `json:"timestamp"`
	MeterID   string     `json:"meter_id" binding:"max=64"`
	Voltage   *float64   `json:"voltage" binding:"required,gte=0"`
	Current   float64    `json:"current" binding:"gte=0"`
	Power     float64    `json:"power"`
	Energy    float64    `json:"energy" binding:"gte=0"`
	PF        float64    `json:"pf" binding:"gte=-1,lte=1"`
}

func (r MeasurementRequest) toModel(now time.Time) models.Measurement {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return models.Measurement{
		Timestamp: ts,
		MeterID:   r.MeterID,
		Voltage:   *r.Voltage,
		Current:   r.Current,
		Power:     r.Power,
		Energy:    r.Energy,
		PF:        r.PF,
	}
}

// IngestResponse reports how many readings were stored
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// MeasurementController ingests and lists meter readings
type MeasurementController struct {
	measurementService *services.MeasurementService
	logger             *utils.Logger
}

// NewMeasurementController creates a new measurement controller
func NewMeasurementController(measurementService *services.MeasurementService, logger *utils.Logger) *MeasurementController {
	return &MeasurementController{
		measurementService: measurementService,
		logger:             logger.Named("measurement_controller"),
	}
}

// RegisterRoutes registers the public measurement routes
func (c *MeasurementController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/measurements", c.ListMeasurements)
	router.GET("/measurements/latest", c.GetLatestMeasurement)
}

// RegisterDeviceRoutes registers the ingest route; router must require a device token
func (c *MeasurementController) RegisterDeviceRoutes(router *gin.RouterGroup) {
	router.POST("/measurements", c.IngestMeasurements)
}

// IngestMeasurements stores one reading or a JSON array of readings
// @Summary Ingest measurements
// @Description Accepts a single reading object or an array of readings and runs outage detection
// @Tags measurements
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body []MeasurementRequest true "Reading or readings"
// @Success 201 {object} IngestResponse
// @Failure 400 {object} utils.ValidationErrorResponse "Invalid reading"
// @Router /measurements [post]
func (c *MeasurementController) IngestMeasurements(ctx *gin.Context) {
	batch, err := decodeReadings(ctx.Request.Body)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	now := time.Now()
	readings := make([]models.Measurement, len(batch))
	for i := range batch {
		if err := binding.Validator.ValidateStruct(&batch[i]); err != nil {
			utils.HandleValidationErrorsAt(ctx, err, fmt.Sprintf("[%d].", i))
			return
		}
		readings[i] = batch[i].toModel(now)
	}

	if err := c.measurementService.IngestBatch(ctx.Request.Context(), readings); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, IngestResponse{Accepted: len(readings)})
}

// decodeReadings accepts either a single object or an array
func decodeReadings(body io.Reader) ([]MeasurementRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", utils.ErrBadRequest)
	}

	var batch []MeasurementRequest
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
		}
	} else {
		var single MeasurementRequest
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
		}
		batch = []MeasurementRequest{single}
	}

	switch {
	case len(batch) == 0:
		return nil, fmt.Errorf("%w: no readings", utils.ErrBadRequest)
	case len(batch) > maxBatchSize:
		return nil, fmt.Errorf("%w: at most %d readings per request", utils.ErrBadRequest, maxBatchSize)
	}
	return batch, nil
}

// ListMeasurements returns stored readings newest first
// @Summary List measurements
// @Tags measurements
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} utils.PaginatedResponse
// @Failure 400 {object} utils.ErrorResponse "Non-numeric page or limit"
// @Router /measurements [get]
func (c *MeasurementController) ListMeasurements(ctx *gin.Context) {
	pagination, err := utils.GetPaginationFromContext(ctx)
	if err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	page, err := c.measurementService.Page(ctx.Request.Context(), pagination)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

// GetLatestMeasurement returns the newest stored reading
func (c *MeasurementController) GetLatestMeasurement(ctx *gin.Context) {
	latest, err := c.measurementService.Latest(ctx.Request.Context())
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, latest)
}
