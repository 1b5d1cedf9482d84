package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/claw-quants/internal/cache"
	"github.com/irfndi/claw-quants/internal/middleware"
	"github.com/irfndi/claw-quants/internal/services"
)

// CacheHandler handles snapshot cache monitoring endpoints
type CacheHandler struct {
	cache cache.SnapshotCache
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(snapshotCache cache.SnapshotCache) *CacheHandler {
	return &CacheHandler{
		cache: snapshotCache,
	}
}

// GetCacheStats returns snapshot cache statistics
// @Summary Get snapshot cache statistics
// @Description Get hit/miss/set counters and hit rate for the series snapshot store
// @Tags cache
// @Produce json
// @Success 200 {object} cache.SnapshotCacheStats
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	stats := h.cache.GetStats()
	response := gin.H{
		"success":  true,
		"backend":  h.cache.Backend(),
		"data":     stats,
		"hit_rate": stats.HitRate(),
	}
	if guarded, ok := h.cache.(interface{ Breaker() *services.CircuitBreaker }); ok {
		response["circuit_breaker"] = guarded.Breaker().GetStats()
	}
	c.JSON(http.StatusOK, response)
}

// GetCachedSeries lists the ids of every persisted series
// @Summary List persisted series
// @Tags cache
// @Produce json
// @Router /api/v1/cache/series [get]
func (h *CacheHandler) GetCachedSeries(c *gin.Context) {
	ids, err := h.cache.GetCachedIDs(c.Request.Context())
	if err != nil {
		middleware.RecordError(c, err, "failed to list cached series")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list cached series",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ids,
		"count":   len(ids),
	})
}

// ClearCache removes every persisted series
// @Summary Clear the snapshot cache
// @Tags cache
// @Security ApiKeyAuth
// @Router /api/v1/cache [delete]
func (h *CacheHandler) ClearCache(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		middleware.RecordError(c, err, "failed to clear snapshot cache")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to clear cache",
		})
		return
	}
	h.cache.LogStats()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Snapshot cache cleared",
	})
}
