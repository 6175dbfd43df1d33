// Package telemetry wires OpenTelemetry tracing and log export for the service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/mto-floor-go/internal/logging"
)

const (
	// Service information
	ServiceName    = "github.com/irfndi/mto-floor-go"
	ServiceVersion = "1.0.0"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	Exporter       string
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRatio    float64
	ExportLogs     bool
	// Output receives spans when Exporter is stdout. Nil means os.Stdout.
	Output io.Writer
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		Exporter:       ExporterNone,
		Endpoint:       "localhost:4318",
		Insecure:       true,
		ServiceName:    "mto-floor-api",
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		SampleRatio:    1.0,
	}
}

// Provider owns the SDK providers installed by Init.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
}

// Init installs the global tracer provider and propagator. When telemetry is
// disabled or the exporter is none, the otel no-op globals stay in place and
// the returned Provider shuts down as a no-op.
func Init(ctx context.Context, config TelemetryConfig, logger *logrus.Logger) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !config.Enabled || config.Exporter == ExporterNone || config.Exporter == "" {
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newSpanExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	ratio := config.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)

	provider := &Provider{tracerProvider: tp}

	if config.ExportLogs && config.Exporter == ExporterOTLP && logger != nil {
		hostport, path, insecure, err := normalizeOTLPEndpoint(config.Endpoint, "logs", config.Insecure)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		lp, err := logging.NewOTLPProvider(ctx, logging.OTLPConfig{
			Endpoint:       hostport,
			URLPath:        path,
			Insecure:       insecure,
			ServiceName:    config.ServiceName,
			ServiceVersion: config.ServiceVersion,
			Environment:    config.Environment,
		})
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		logger.AddHook(logging.NewOTLPHook(lp.Logger(config.ServiceName), logger.GetLevel()))
		provider.loggerProvider = lp
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"exporter":     config.Exporter,
			"endpoint":     config.Endpoint,
			"sample_ratio": ratio,
			"export_logs":  provider.loggerProvider != nil,
		}).Info("Telemetry initialized")
	}
	return provider, nil
}

func newSpanExporter(ctx context.Context, config TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch config.Exporter {
	case ExporterOTLP:
		hostport, path, insecure, err := normalizeOTLPEndpoint(config.Endpoint, "traces", config.Insecure)
		if err != nil {
			return nil, err
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(path),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		return exporter, nil
	case ExporterStdout:
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", config.Exporter)
	}
}

// normalizeOTLPEndpoint accepts either host:port or a collector URL and
// returns the exporter endpoint, the signal path and whether to use plain
// HTTP. A URL scheme overrides defaultInsecure.
func normalizeOTLPEndpoint(raw, signal string, defaultInsecure bool) (hostport, urlPath string, insecure bool, err error) {
	raw = strings.TrimSpace(raw)
	suffix := "/v1/" + signal
	if raw == "" {
		return "localhost:4318", suffix, true, nil
	}
	if !strings.Contains(raw, "://") {
		if strings.ContainsAny(raw, "/?#") {
			return "", "", false, fmt.Errorf("invalid OTLP endpoint %q", raw)
		}
		return raw, suffix, defaultInsecure, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		insecure = true
	case "https":
		insecure = false
	default:
		return "", "", false, fmt.Errorf("invalid OTLP endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}

	base := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(base, suffix) {
		base += suffix
	}
	return u.Host, base, insecure, nil
}

// Enabled reports whether spans are being exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.tracerProvider != nil
}

// Shutdown flushes and stops the installed providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.loggerProvider != nil {
		errs = append(errs, p.loggerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// GetHTTPTracer returns the tracer used for inbound requests.
func GetHTTPTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/http")
}

// GetBusinessTracer returns the tracer used for prediction and fusion spans.
func GetBusinessTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/business")
}
