package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/mto-floor-go/internal/middleware"
	"github.com/irfndi/mto-floor-go/internal/services"
	"github.com/irfndi/mto-floor-go/internal/utils"
)

// respondError maps service errors onto HTTP statuses. Only unexpected
// failures are recorded on the request span.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case utils.IsValidationError(err):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrGameNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "Request timed out"
	}

	if status >= http.StatusInternalServerError {
		middleware.RecordError(c, err, "request failed")
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

func slateQuery(c *gin.Context) services.SlateQuery {
	return services.SlateQuery{
		Sport:    strings.TrimSpace(c.Query("sport")),
		Date:     strings.TrimSpace(c.Query("date")),
		TimeZone: strings.TrimSpace(c.Query("tz")),
	}
}
