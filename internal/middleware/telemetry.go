// Package middleware provides the gin middleware for request ids, access
// logging, CORS, admin authentication and tracing.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryMiddleware creates the otelgin server-span middleware. Health
// probes are not traced.
func TelemetryMiddleware(service string, opts ...otelgin.Option) gin.HandlerFunc {
	opts = append([]otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	}, opts...)
	return otelgin.Middleware(service, opts...)
}

// RequestIDAttribute copies the request id onto the active span.
func RequestIDAttribute() gin.HandlerFunc {
	return func(c *gin.Context) {
		AddSpanAttribute(c, "http.request_id", GetRequestID(c))
		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			RecordError(c, fmt.Errorf("HTTP %d", status), http.StatusText(status))
		}
	}
}

// RecordError records an error on the current span
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
	}
}
