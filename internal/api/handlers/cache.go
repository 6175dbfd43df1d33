package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/mto-floor-go/internal/cache"
)

// ManagedCache is the part of a cache.Store the operational endpoints use.
type ManagedCache interface {
	Stats() cache.Stats
	Clear(ctx context.Context) error
}

// CacheHandler handles cache monitoring and maintenance endpoints.
type CacheHandler struct {
	caches []ManagedCache
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(caches ...ManagedCache) *CacheHandler {
	return &CacheHandler{caches: caches}
}

// Snapshot returns statistics for every registered cache.
func (h *CacheHandler) Snapshot() []cache.Stats {
	stats := make([]cache.Stats, 0, len(h.caches))
	for _, c := range h.caches {
		stats = append(stats, c.Stats())
	}
	return stats
}

// GetCacheStats returns cache statistics for all caches
// GET /api/v1/cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.Snapshot(),
	})
}

// ClearCaches empties every cache.
// POST /api/v1/admin/cache/clear
func (h *CacheHandler) ClearCaches(c *gin.Context) {
	for _, mc := range h.caches {
		if err := mc.Clear(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to clear cache " + mc.Stats().Name + ": " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Caches cleared successfully",
		"cleared": len(h.caches),
	})
}
