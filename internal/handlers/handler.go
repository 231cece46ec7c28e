package handlers

import (
	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/metrics"
	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live heater stream on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware)
	{
		h.registerHeaterRoutes(api)
		h.registerControlRoutes(api)
		h.registerModelRoutes(api)
		h.registerLogRoutes(api)
		api.PUT("/operators/:id/role", h.requireOperator, h.setRole)
	}
}

func (h *Handler) registerHeaterRoutes(api *gin.RouterGroup) {
	heaters := api.Group("/heaters")
	{
		heaters.GET("", h.listHeaters)
		heaters.GET("/:id", h.getHeater)
	}
}

func (h *Handler) registerControlRoutes(api *gin.RouterGroup) {
	control := api.Group("/control")
	{
		control.POST("/start", h.requireOperator, h.startControl)
		control.POST("/stop", h.requireOperator, h.stopControl)
		control.GET("/status", h.controlStatus)
	}
}

func (h *Handler) registerModelRoutes(api *gin.RouterGroup) {
	// Body example: {"ambient_c":21.5,"interval_sec":300,"series":[[21.5,60.2,null]]}
	api.POST("/estimate", h.estimate)
	// Body example: {"initial_c":21.5,"alpha_on":0.002,"t_max":400,"ambient_c":21.5,"schedule":[true,false]}
	api.POST("/simulate", h.simulate)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
