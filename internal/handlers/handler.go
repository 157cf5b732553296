package handlers

import (
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/service"

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

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Entity state stream, same port
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
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerEntryRoutes(api)
		h.registerEntityRoutes(api)
		h.registerLogRoutes(api)
		api.POST("/refresh", h.refreshAll)
	}
}

func (h *Handler) registerEntryRoutes(api *gin.RouterGroup) {
	entries := api.Group("/entries")
	{
		entries.GET("", h.listEntries)
		// Body example: {"username":"me@example.com","password":"secret","api":"eldom"}
		entries.POST("", h.createEntry)
		entries.DELETE("/:id", h.deleteEntry)
	}
}

func (h *Handler) registerEntityRoutes(api *gin.RouterGroup) {
	entities := api.Group("/entities")
	{
		entities.GET("", h.listEntities)
		entities.GET("/:id", h.getEntity)
		// Body example: {"temperature":60} or {"mode":"Smart"}
		entities.POST("/:id/:action", h.entityAction)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
