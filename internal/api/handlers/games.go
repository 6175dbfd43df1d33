package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/resilience"
	"github.com/irfndi/mto-floor-go/internal/services"
)

// GameServiceInterface is the slate and feed surface the handlers need.
type GameServiceInterface interface {
	ListGames(ctx context.Context, q services.SlateQuery) (*services.Slate, error)
	Schedule(ctx context.Context, q services.SlateQuery) (feeds.Result, error)
	Odds(ctx context.Context, sport string) (feeds.Result, error)
	FeedHealth() []models.FeedHealth
}

// BreakerRegistry exposes circuit breaker state.
type BreakerRegistry interface {
	GetAllStats() map[string]resilience.CircuitBreakerStats
	ResetAll()
}

// GameHandler serves fused slates and the raw feed boundaries.
type GameHandler struct {
	games    GameServiceInterface
	breakers BreakerRegistry
}

// NewGameHandler creates a GameHandler. breakers may be nil.
func NewGameHandler(games GameServiceInterface, breakers BreakerRegistry) *GameHandler {
	return &GameHandler{
		games:    games,
		breakers: breakers,
	}
}

// ListGames returns the fused games for a sport and local date.
// GET /api/v1/games?sport=&date=&tz=
func (h *GameHandler) ListGames(c *gin.Context) {
	slate, err := h.games.ListGames(c.Request.Context(), slateQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games":  slate.Games,
		"health": slate.Health,
		"window": slate.Window,
	})
}

// GetSchedule returns the schedule feed's records for the window. Upstream
// failures are reported in the body with a 200.
// GET /api/v1/feeds/schedule?sport=&date=&tz=
func (h *GameHandler) GetSchedule(c *gin.Context) {
	res, err := h.games.Schedule(c.Request.Context(), slateQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetOdds returns the odds feed's records. sport accepts a code or odds key.
// GET /api/v1/feeds/odds?sport=
func (h *GameHandler) GetOdds(c *gin.Context) {
	res, err := h.games.Odds(c.Request.Context(), c.Query("sport"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetFeedHealth returns the health registry and breaker state.
// GET /api/v1/feeds/health
func (h *GameHandler) GetFeedHealth(c *gin.Context) {
	breakers := map[string]resilience.CircuitBreakerStats{}
	if h.breakers != nil {
		breakers = h.breakers.GetAllStats()
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds":           h.games.FeedHealth(),
		"circuitBreakers": breakers,
	})
}

// ResetCircuitBreakers closes every breaker.
// POST /api/v1/admin/circuit-breakers/reset
func (h *GameHandler) ResetCircuitBreakers(c *gin.Context) {
	if h.breakers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Circuit breakers not configured",
		})
		return
	}

	h.breakers.ResetAll()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Circuit breakers reset successfully",
	})
}
