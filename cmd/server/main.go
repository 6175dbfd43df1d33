package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/mto-floor-go/internal/api"
	"github.com/irfndi/mto-floor-go/internal/config"
	"github.com/irfndi/mto-floor-go/internal/logging"
	"github.com/irfndi/mto-floor-go/internal/middleware"
	"github.com/irfndi/mto-floor-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(logging.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		Service:     cfg.Telemetry.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry before anything creates spans
	provider, err := telemetry.Init(ctx, telemetryConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
	}()

	application, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	router := newRouter(cfg, logger, application)

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, cfg.Telemetry.ServiceName, cfg.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	logging.LogShutdown(logger, cfg.Telemetry.ServiceName, "signal received")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func telemetryConfig(cfg *config.Config) telemetry.TelemetryConfig {
	return telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ExportLogs:     cfg.Telemetry.ExportLogs,
	}
}

func newRouter(cfg *config.Config, logger *logrus.Logger, application *app) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.TelemetryMiddleware(cfg.Telemetry.ServiceName))
	router.Use(middleware.RequestIDAttribute())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	deps := api.Dependencies{
		Games:       application.games,
		Predictions: application.predictions,
		Breakers:    application.breakers,
		Caches:      application.caches,
		Version:     cfg.Version,
		AdminAPIKey: cfg.Server.AdminAPIKey,
	}
	// A nil *RedisClient must not become a non-nil interface.
	if application.redis != nil {
		deps.Redis = application.redis
	}
	api.SetupRoutes(router, deps)
	return router
}
