package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wildfireranch/commandcenter/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		errorHandlingMiddleware(handler.logger),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/api/v1/health", handler.Health)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", handler.Login)

		protected := api.Group("/")
		protected.Use(authMiddleware(handler.authSvc))
		{
			protected.POST("/ask", handler.Ask)

			kbRoutes := protected.Group("/kb")
			{
				kbRoutes.POST("/sync", handler.KBSync)
				kbRoutes.POST("/preview", handler.KBPreview)
				kbRoutes.POST("/search", handler.KBSearch)
			}

			energyRoutes := protected.Group("/energy")
			{
				energyRoutes.GET("/latest", handler.EnergyLatest)
				energyRoutes.GET("/stats", handler.EnergyStats)
			}

			protected.GET("/conversations", handler.Conversations)
			protected.GET("/conversations/:id", handler.ConversationByID)

			protected.GET("/health/monitoring/status", handler.HealthMonitoringStatus)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
