// Package logging builds the logrus logger shared by the service and the
// field conventions used across packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures NewLogger.
type Options struct {
	Level       string
	Environment string
	Service     string
	Output      io.Writer
}

// NewLogger returns a logrus logger. Production writes JSON, everything
// else writes human-readable text.
func NewLogger(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLogrusLevel(opts.Level))
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if strings.EqualFold(opts.Environment, "production") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	if opts.Service != "" {
		logger.AddHook(&serviceHook{service: opts.Service})
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// serviceHook stamps every entry with the service name.
type serviceHook struct {
	service string
}

func (h *serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = h.service
	}
	return nil
}

// WithComponent creates an entry with component context
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// WithRequestID creates an entry with request ID context
func WithRequestID(logger *logrus.Logger, requestID string) *logrus.Entry {
	return logger.WithField("request_id", requestID)
}

// LogStartup logs application startup information
func LogStartup(logger *logrus.Logger, serviceName, version string, port int) {
	logger.WithFields(logrus.Fields{
		"event":   "startup",
		"service": serviceName,
		"version": version,
		"port":    port,
	}).Info("Service starting")
}

// LogShutdown logs application shutdown information
func LogShutdown(logger *logrus.Logger, serviceName, reason string) {
	logger.WithFields(logrus.Fields{
		"event":   "shutdown",
		"service": serviceName,
		"reason":  reason,
	}).Info("Service shutting down")
}

// LogAPIRequest logs one served request. Server errors log at error level,
// client errors at warn.
func LogAPIRequest(logger *logrus.Logger, requestID, method, path string, statusCode int, duration time.Duration) {
	entry := logger.WithFields(logrus.Fields{
		"event":       "api_request",
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case statusCode >= 500:
		entry.Error("API request")
	case statusCode >= 400:
		entry.Warn("API request")
	default:
		entry.Info("API request")
	}
}
