package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heliotelligence/internal/repository"
	"heliotelligence/internal/service"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, monitoring *service.MonitoringService, prediction *service.PredictionService, catalog repository.CatalogRepository, feed http.Handler) {
	h := NewHandler(monitoring, prediction, catalog)

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", gin.WrapH(feed))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/predict", h.Predict)
		v1.GET("/stats", h.GetStats)

		farms := v1.Group("/farms")
		{
			farms.POST("", h.RegisterFarm)
			farms.GET("", h.ListFarms)
			farms.POST("/:id/data", h.IngestData)
			farms.GET("/:id/monitoring", h.GetDashboard)
			farms.POST("/:id/analyze", h.AnalyzePerformance)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.PUT("/:id/resolve", h.ResolveAlert)
		}

		parts := v1.Group("/catalog")
		{
			parts.GET("/modules", h.GetModules)
			parts.GET("/inverters", h.GetInverters)
		}
	}

	r.Static("/static", "./static")
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File("./static/index.html")
	})
}
