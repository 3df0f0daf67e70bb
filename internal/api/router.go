package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/service"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	importHandler := NewImportHandler(services, cfg, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	// Filtered import keeps its historical path for existing clients
	router.POST("/import-filtered-data", importHandler.ImportFiltered)

	// API v1
	v1 := router.Group("/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.POST("/full", importHandler.RunFullImport)
			imports.POST("/filtered", importHandler.ImportFiltered)
			imports.GET("/runs", importHandler.ListRuns)
			imports.GET("/runs/:run_id", importHandler.GetRun)
		}
		v1.GET("/datasets", importHandler.ListDatasets)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "report-import-api",
	})
}

// metricsHandler returns row counts per dataset table
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Import.DatasetCounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read dataset counts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}
