package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/services"
	"github.com/jat99/PowerMonitor/internal/utils"
)

// SeriesController serves the period catalog and labeled charts
type SeriesController struct {
	seriesService *services.SeriesService
	logger        *utils.Logger
}

// NewSeriesController creates a new series controller
func NewSeriesController(seriesService *services.SeriesService, logger *utils.Logger) *SeriesController {
	return &SeriesController{
		seriesService: seriesService,
		logger:        logger.Named("series_controller"),
	}
}

// RegisterRoutes registers the series routes
func (c *SeriesController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/periods", c.ListPeriods)
	router.GET("/series/:quantity", c.GetSeries)
}

// ListPeriods returns the period catalog
// @Summary List chart periods
// @Tags series
// @Produce json
// @Success 200 {array} series.PeriodSpec
// @Router /periods [get]
func (c *SeriesController) ListPeriods(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.seriesService.Periods())
}

// GetSeries returns a labeled chart of one quantity
// @Summary Get a chart series
// @Description Returns points, ticks, axis labels and tooltips for voltage, current, power or energy
// @Tags series
// @Produce json
// @Param quantity path string true "voltage, current, power or energy"
// @Param period query string false "hour (default), 24hours or week"
// @Success 200 {object} series.Chart
// @Failure 400 {object} utils.ErrorResponse "Invalid period"
// @Failure 404 {object} utils.ErrorResponse "Unknown quantity"
// @Router /series/{quantity} [get]
func (c *SeriesController) GetSeries(ctx *gin.Context) {
	period, err := series.ParsePeriod(ctx.DefaultQuery("period", series.Hour.String()))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	chart, err := c.seriesService.Chart(ctx.Request.Context(), ctx.Param("quantity"), period)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, chart)
}
