package api

import (
	"github.com/gin-gonic/gin"

	"github.com/irfndi/mto-floor-go/internal/api/handlers"
	"github.com/irfndi/mto-floor-go/internal/middleware"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Games       handlers.GameServiceInterface
	Predictions handlers.PredictionServiceInterface
	Breakers    handlers.BreakerRegistry
	Caches      []handlers.ManagedCache
	// Redis is nil when the memory cache backend is used.
	Redis       handlers.HealthChecker
	Version     string
	AdminAPIKey string
}

// SetupRoutes registers every endpoint. Admin routes are only mounted when
// an admin API key is configured.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cacheHandler := handlers.NewCacheHandler(deps.Caches...)
	healthHandler := handlers.NewHealthHandler(deps.Redis, cacheHandler, deps.Version)
	gameHandler := handlers.NewGameHandler(deps.Games, deps.Breakers)
	predictionHandler := handlers.NewPredictionHandler(deps.Predictions)

	// Health check endpoints
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/health/live", healthHandler.LivenessCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		games := v1.Group("/games")
		{
			games.GET("", gameHandler.ListGames)
			games.GET("/:id/prediction", predictionHandler.GetPrediction)
		}

		feeds := v1.Group("/feeds")
		{
			feeds.GET("/schedule", gameHandler.GetSchedule)
			feeds.GET("/odds", gameHandler.GetOdds)
			feeds.GET("/health", gameHandler.GetFeedHealth)
		}

		predictions := v1.Group("/predictions")
		{
			predictions.POST("/evaluate", predictionHandler.Evaluate)
		}

		v1.GET("/cache/stats", cacheHandler.GetCacheStats)

		adminMiddleware := middleware.NewAdminMiddleware(deps.AdminAPIKey)
		if adminMiddleware.Enabled() {
			admin := v1.Group("/admin")
			admin.Use(adminMiddleware.RequireAdminAuth())
			{
				admin.POST("/cache/clear", cacheHandler.ClearCaches)
				admin.POST("/circuit-breakers/reset", gameHandler.ResetCircuitBreakers)
			}
		}
	}
}
