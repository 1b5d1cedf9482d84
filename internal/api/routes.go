package api

import (
	"github.com/gin-gonic/gin"

	"github.com/irfndi/claw-quants/internal/api/handlers"
	"github.com/irfndi/claw-quants/internal/cache"
	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/middleware"
	"github.com/irfndi/claw-quants/internal/services"
)

// Dependencies are the services the API routes are built from.
type Dependencies struct {
	Cache        cache.SnapshotCache
	Leaderboard  *services.Leaderboard
	Monitor      *services.ResourceMonitor
	Simulation   handlers.SimulationConfig
	AgentsOffset int
	Version      string
	AdminAPIKey  string
	Events       *logging.StandardLogger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Probes use the plain net/http handlers
	health := handlers.NewHealthHandler(deps.Cache, monitorOrNil(deps.Monitor), deps.Version)
	router.GET("/health", gin.WrapF(health.HealthCheck))
	router.HEAD("/health", gin.WrapF(health.HealthCheck))
	router.GET("/ready", gin.WrapF(health.ReadinessCheck))
	router.GET("/live", gin.WrapF(health.LivenessCheck))

	var streams handlers.StreamCounter
	if deps.Monitor != nil {
		streams = deps.Monitor
	}
	simulation := handlers.NewSimulationHandler(deps.Cache, deps.Simulation, streams, deps.Events)
	leaderboard := handlers.NewLeaderboardHandler(deps.Leaderboard, deps.AgentsOffset)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)
	admin := middleware.NewAdminMiddleware(deps.AdminAPIKey)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		simulations := v1.Group("/simulations")
		{
			simulations.GET("/:id", simulation.GetSimulation)
			simulations.GET("/:id/stream", simulation.StreamSimulation)
		}

		v1.GET("/leaderboard", leaderboard.GetLeaderboard)

		traders := v1.Group("/traders")
		{
			traders.GET("/:id", leaderboard.GetTrader)
			traders.GET("/:id/logs", leaderboard.GetTraderLogs)
		}

		cacheRoutes := v1.Group("/cache")
		{
			cacheRoutes.GET("/stats", cacheHandler.GetCacheStats)
			cacheRoutes.GET("/series", cacheHandler.GetCachedSeries)
		}
		v1.DELETE("/cache", admin.RequireAdminAuth(), cacheHandler.ClearCache)
	}
}

// monitorOrNil keeps a nil *ResourceMonitor from becoming a non-nil interface.
func monitorOrNil(m *services.ResourceMonitor) handlers.SystemMonitor {
	if m == nil {
		return nil
	}
	return m
}
