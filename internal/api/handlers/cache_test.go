package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/models"
)

func newCacheRouter(h *CacheHandler) *gin.Engine {
	router := gin.New()
	router.GET("/api/v1/cache/stats", h.GetCacheStats)
	router.POST("/api/v1/admin/cache/clear", h.ClearCaches)
	return router
}

func TestCacheHandler_GetCacheStats(t *testing.T) {
	ctx := context.Background()
	predictions := cache.NewTTLCache[models.MTOPrediction]("predictions", time.Minute, nil)
	teamStats := cache.NewTTLCache[models.TeamStats]("team_stats", time.Minute, nil)
	predictions.Set(ctx, "NBA-401|2025-01-09", models.MTOPrediction{GameID: "NBA-401"})
	predictions.Get(ctx, "NBA-401|2025-01-09")
	predictions.Get(ctx, "missing")

	w := performRequest(newCacheRouter(NewCacheHandler(predictions, teamStats)), http.MethodGet, "/api/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    []cache.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "predictions", body.Data[0].Name)
	assert.Equal(t, int64(1), body.Data[0].Entries)
	assert.Equal(t, int64(1), body.Data[0].Hits)
	assert.Equal(t, int64(1), body.Data[0].Misses)
	assert.Equal(t, "team_stats", body.Data[1].Name)
}

func TestCacheHandler_ClearCaches(t *testing.T) {
	ctx := context.Background()
	predictions := cache.NewTTLCache[int]("predictions", time.Minute, nil)
	predictions.Set(ctx, "a", 1)

	w := performRequest(newCacheRouter(NewCacheHandler(predictions)), http.MethodPost, "/api/v1/admin/cache/clear", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), predictions.Stats().Entries)
}

func TestCacheHandler_ClearCaches_Error(t *testing.T) {
	broken := &MockManagedCache{}
	broken.On("Clear", mock.Anything).Return(errors.New("redis unavailable"))
	broken.On("Stats").Return(cache.Stats{Name: "feeds", Backend: "redis"})

	w := performRequest(newCacheRouter(NewCacheHandler(broken)), http.MethodPost, "/api/v1/admin/cache/clear", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "feeds")
}
