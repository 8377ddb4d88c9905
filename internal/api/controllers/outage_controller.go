package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/services"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// OpenOutageRequest opens an outage. StartTime defaults to now.
type OpenOutageRequest struct {
	StartTime     *time.Time `json:"start_time"`
	VoltageBefore *float64   `json:"voltage_before" binding:"required,gte=0"`
	Cause         string     `json:"cause" binding:"max=255"`
}

// ResolveOutageRequest resolves an outage. EndTime defaults to now.
type ResolveOutageRequest struct {
	EndTime      *time.Time `json:"end_time"`
	VoltageAfter *float64   `json:"voltage_after" binding:"required,gte=0"`
}

// OutageController lists outages and records their lifecycle
type OutageController struct {
	outageService       *services.OutageService
	registry            *outage.Registry
	notificationService *services.NotificationService
	upgrader            websocket.Upgrader
	logger              *utils.Logger
}

// NewOutageController creates a new outage controller
func NewOutageController(
	outageService *services.OutageService,
	registry *outage.Registry,
	notificationService *services.NotificationService,
	logger *utils.Logger,
) *OutageController {
	return &OutageController{
		outageService:       outageService,
		registry:            registry,
		notificationService: notificationService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin, matching the CORS setup
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("outage_controller"),
	}
}

// RegisterRoutes registers the public outage routes
func (c *OutageController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/outages", c.ListOutages)
	router.GET("/outages/active", c.GetActiveOutage)
	router.GET("/ws/outages", c.StreamOutages)
}

// RegisterDeviceRoutes registers the outage write routes; router must require a device token
func (c *OutageController) RegisterDeviceRoutes(router *gin.RouterGroup) {
	router.POST("/outages", c.OpenOutage)
	router.POST("/outages/resolve", c.ResolveLatestOutage)
	router.POST("/outages/:id/resolve", c.ResolveOutage)
}

// ListOutages returns outages, optionally filtered to one day or an inclusive day range
// @Summary List outages
// @Tags outages
// @Produce json
// @Param date query string false "Single day (YYYY-MM-DD)"
// @Param start_date query string false "First day of range (YYYY-MM-DD)"
// @Param end_date query string false "Last day of range, inclusive (YYYY-MM-DD)"
// @Success 200 {array} outage.View
// @Failure 400 {object} utils.ErrorResponse "Invalid query"
// @Failure 503 {object} utils.ErrorResponse "Outage source unavailable"
// @Router /outages [get]
func (c *OutageController) ListOutages(ctx *gin.Context) {
	q, err := outage.ParseQuery(ctx.Query("date"), ctx.Query("start_date"), ctx.Query("end_date"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	views, err := c.registry.List(ctx.Request.Context(), q)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, views)
}

// GetActiveOutage returns the ongoing outage
// @Summary Get the active outage
// @Tags outages
// @Produce json
// @Success 200 {object} outage.View
// @Failure 404 {object} utils.ErrorResponse "Power is on"
// @Router /outages/active [get]
func (c *OutageController) GetActiveOutage(ctx *gin.Context) {
	active, err := c.outageService.Active(ctx.Request.Context())
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}
	if active == nil {
		ctx.JSON(http.StatusNotFound, utils.ErrorResponse{
			Error:   "not_found",
			Message: "no active outage",
		})
		return
	}

	ctx.JSON(http.StatusOK, active)
}

// OpenOutage records the start of an outage
// @Summary Open an outage
// @Tags outages
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body OpenOutageRequest true "Outage start"
// @Success 201 {object} outage.View
// @Failure 409 {object} utils.ErrorResponse "An outage is already active"
// @Router /outages [post]
func (c *OutageController) OpenOutage(ctx *gin.Context) {
	var req OpenOutageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	start := time.Now()
	if req.StartTime != nil {
		start = *req.StartTime
	}

	view, err := c.outageService.Open(ctx.Request.Context(), start, *req.VoltageBefore, req.Cause)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

// ResolveOutage resolves the outage with the given id
// @Summary Resolve an outage
// @Tags outages
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Outage ID"
// @Param request body ResolveOutageRequest true "Outage end"
// @Success 200 {object} outage.View
// @Failure 404 {object} utils.ErrorResponse "Outage not found"
// @Failure 409 {object} utils.ErrorResponse "Outage already resolved"
// @Router /outages/{id}/resolve [post]
func (c *OutageController) ResolveOutage(ctx *gin.Context) {
	req, end, ok := c.bindResolve(ctx)
	if !ok {
		return
	}

	view, err := c.outageService.Resolve(ctx.Request.Context(), ctx.Param("id"), end, *req.VoltageAfter)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// ResolveLatestOutage resolves the most recently recorded outage
// @Summary Resolve the latest outage
// @Tags outages
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ResolveOutageRequest true "Outage end"
// @Success 200 {object} outage.View
// @Router /outages/resolve [post]
func (c *OutageController) ResolveLatestOutage(ctx *gin.Context) {
	req, end, ok := c.bindResolve(ctx)
	if !ok {
		return
	}

	view, err := c.outageService.ResolveLatest(ctx.Request.Context(), end, *req.VoltageAfter)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func (c *OutageController) bindResolve(ctx *gin.Context) (ResolveOutageRequest, time.Time, bool) {
	var req ResolveOutageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return req, time.Time{}, false
	}

	end := time.Now()
	if req.EndTime != nil {
		end = *req.EndTime
	}
	return req, end, true
}

// StreamOutages upgrades to a websocket that receives every outage event
// @Summary Stream outage events
// @Tags outages
// @Router /ws/outages [get]
func (c *OutageController) StreamOutages(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := c.notificationService.RegisterClient(conn)
	c.logger.Debug("Outage stream opened", zap.String("client_id", client.ID()))
}
