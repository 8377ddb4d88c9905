package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jat99/PowerMonitor/internal/api/controllers"
	"github.com/jat99/PowerMonitor/internal/api/middleware"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/services"
	"github.com/jat99/PowerMonitor/internal/utils"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router manages the API routes and controllers
type Router struct {
	engine                *gin.Engine
	logger                *utils.Logger
	config                *config.Config
	authMiddleware        *middleware.AuthMiddleware
	serviceProvider       *services.ServiceProvider
	seriesController      *controllers.SeriesController
	outageController      *controllers.OutageController
	measurementController *controllers.MeasurementController
}

// NewRouter creates a new Router instance
func NewRouter(
	config *config.Config,
	logger *utils.Logger,
	serviceProvider *services.ServiceProvider,
) *Router {
	if config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	utils.UseJSONFieldNames()

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.LoggingMiddleware(logger.Named("http")))

	// Allow all origins, as the dashboard is served from anywhere
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Origin", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	engine.Use(cors.New(corsConfig))

	return &Router{
		engine:          engine,
		logger:          logger.Named("router"),
		config:          config,
		authMiddleware:  middleware.NewAuthMiddleware(&config.JWT),
		serviceProvider: serviceProvider,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", r.health)

	sp := r.serviceProvider
	r.seriesController = controllers.NewSeriesController(sp.GetSeriesService(), r.logger)
	r.outageController = controllers.NewOutageController(
		sp.GetOutageService(),
		sp.GetOutageRegistry(),
		sp.GetNotificationService(),
		r.logger,
	)
	r.measurementController = controllers.NewMeasurementController(sp.GetMeasurementService(), r.logger)

	api := r.engine.Group("/api")
	r.seriesController.RegisterRoutes(api)
	r.outageController.RegisterRoutes(api)
	r.measurementController.RegisterRoutes(api)

	// Writes require a device token
	device := api.Group("")
	device.Use(r.authMiddleware.RequireDevice())
	r.outageController.RegisterDeviceRoutes(device)
	r.measurementController.RegisterDeviceRoutes(device)

	if !r.config.Server.IsProduction() {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.logger.Info("API routes setup completed")
}

// health reports whether the store answers and whether Kafka is running
func (r *Router) health(c *gin.Context) {
	sp := r.serviceProvider
	body := gin.H{"status": "healthy", "database": "up"}
	status := http.StatusOK

	if !sp.GetDatabase().Healthy(c.Request.Context()) {
		body["status"], body["database"] = "degraded", "down"
		status = http.StatusServiceUnavailable
	}
	if km := sp.GetKafkaManager(); km != nil {
		body["kafka"] = gin.H{
			"running":           km.IsRunning(),
			"consumers":         km.Stats(),
			"delivery_failures": km.DeliveryFailures(),
		}
	}
	c.JSON(status, body)
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
