package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/middleware"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/services"
)

// PredictionServiceInterface is the prediction surface the handlers need.
type PredictionServiceInterface interface {
	PredictGame(ctx context.Context, q services.SlateQuery, gameID string) (models.MTOPrediction, bool, error)
	Evaluate(in engine.Input) (models.MTOPrediction, error)
}

// PredictionHandler serves MTO floor predictions.
type PredictionHandler struct {
	predictions PredictionServiceInterface
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(predictions PredictionServiceInterface) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// GetPrediction returns the floor prediction for one game. The sport query
// parameter may be omitted when the id carries a sport prefix.
// GET /api/v1/games/:id/prediction?sport=&date=&tz=
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	gameID := strings.TrimSpace(c.Param("id"))
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Game id is required",
		})
		return
	}

	q := slateQuery(c)
	if q.Sport == "" {
		if prefix, _, ok := strings.Cut(gameID, "-"); ok {
			q.Sport = prefix
		}
	}

	prediction, cached, err := h.predictions.PredictGame(c.Request.Context(), q, gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "prediction.cached", cached)
	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, prediction)
}

// Evaluate runs the engine on a caller-supplied input.
// POST /api/v1/predictions/evaluate
func (h *PredictionHandler) Evaluate(c *gin.Context) {
	var in engine.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	prediction, err := h.predictions.Evaluate(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}
