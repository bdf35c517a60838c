package handlers

import (
	"net/http"

	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const defaultWSBuffer = 16

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler

	wsBuffer       int
	allowedOrigins map[string]bool
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option { return func(hd *Handler) { hd.metrics = h } }

// WithWebSocket sets the per-connection update buffer and the allowed origins.
// An empty origin list accepts any origin.
func WithWebSocket(buffer int, origins []string) Option {
	return func(hd *Handler) {
		if buffer > 0 {
			hd.wsBuffer = buffer
		}
		if len(origins) > 0 {
			hd.allowedOrigins = make(map[string]bool, len(origins))
			for _, o := range origins {
				hd.allowedOrigins[o] = true
			}
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: logger.OrNop(log), wsBuffer: defaultWSBuffer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	ws := router.Group("/ws")
	{
		ws.GET("/dashboard", h.wsDashboard)
		ws.GET("/verification/:id", h.wsVerification)
	}

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requestLogMiddleware)
	{
		h.registerDashboardRoutes(api)
		h.registerVerificationRoutes(api)
		h.registerFormRoutes(api)
		h.registerTimelineRoutes(api)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	views := api.Group("/dashboard/views")
	{
		views.POST("", h.mountView)
		views.GET("/:id", h.getView)
		views.DELETE("/:id", h.unmountView)
		views.POST("/:id/playback", h.togglePlayback)
		// Body example: {"index":2}
		views.POST("/:id/nav", h.selectNav)
	}
}

func (h *Handler) registerVerificationRoutes(api *gin.RouterGroup) {
	v := api.Group("/verification")
	{
		// Body example: {"screen":"signup"}
		v.POST("", h.issueCode)
		v.GET("/:id", h.getVerification)
		v.POST("/:id/resend", h.resendCode)
		v.DELETE("/:id", h.cancelVerification)
	}
}

func (h *Handler) registerFormRoutes(api *gin.RouterGroup) {
	api.POST("/forms/:form", h.submitForm)
	api.POST("/navigate/:link", h.navigate)
}

func (h *Handler) registerTimelineRoutes(api *gin.RouterGroup) {
	api.GET("/timeline", h.getTimeline)
}
