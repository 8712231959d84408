package handlers

import (
	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/service"

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

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Session snapshot stream, same port
	router.GET("/ws", h.streamAuthMiddleware, h.wsConnect)

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
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		api.GET("/operator", h.getOperator)
		h.registerCategoryRoutes(api)
		h.registerSessionRoutes(api)
		h.registerDashboardRoutes(api)
		h.registerAnalysisRoutes(api)
		h.registerAuditRoutes(api)
	}
}

func (h *Handler) registerCategoryRoutes(api *gin.RouterGroup) {
	categories := api.Group("/categories")
	{
		categories.GET("", h.getCategories)
		categories.GET("/leaves", h.getLeaves)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	s := api.Group("/session")
	{
		s.GET("", h.getSession)
		// Body example: {"category_id":12}
		s.POST("/load", h.loadCategory)
		// Body example: {"start":"2024-01-01T00:00:00","end":"2024-01-31T00:00:00"}
		s.PUT("/range", h.setRange)
		s.PUT("/sensitivity", h.setSensitivity)
		s.POST("/exclusions/toggle", h.toggleExclude)
		s.PUT("/mode", h.setInteractionMode)
		s.POST("/baseline", h.saveBaseline)
		s.DELETE("/baseline", h.deleteBaseline)
		s.DELETE("/error", h.clearSessionError)
		s.GET("/anomalies/highlighted", h.getHighlighted)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	d := api.Group("/dashboard")
	{
		d.GET("", h.getDashboard)
		d.PUT("/visibility", h.setDashboardVisibility)
		d.POST("/analysis", h.runAnalysis)
		d.DELETE("/baseline/:id", h.deleteDashboardBaseline)
		d.DELETE("/error", h.clearDashboardError)
	}
}

func (h *Handler) registerAnalysisRoutes(api *gin.RouterGroup) {
	api.GET("/analysis/status", h.getAnalysisStatus)
}

func (h *Handler) registerAuditRoutes(api *gin.RouterGroup) {
	audit := api.Group("/audit")
	{
		audit.GET("", h.getAudit)
	}
}
