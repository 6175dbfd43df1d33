package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OTLPConfig holds configuration for OpenTelemetry logging
type OTLPConfig struct {
	Endpoint       string
	URLPath        string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// NewOTLPProvider creates a batching logger provider that ships records to
// an OTLP/HTTP collector.
func NewOTLPProvider(ctx context.Context, config OTLPConfig) (*sdklog.LoggerProvider, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	urlPath := config.URLPath
	if urlPath == "" {
		urlPath = "/v1/logs"
	}

	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithURLPath(urlPath),
	}
	if config.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
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

	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}

// OTLPHook forwards logrus entries to an OpenTelemetry logger.
type OTLPHook struct {
	logger otellog.Logger
	levels []logrus.Level
	now    func() time.Time
}

// NewOTLPHook emits entries at minLevel and above through logger.
func NewOTLPHook(logger otellog.Logger, minLevel logrus.Level) *OTLPHook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		if lvl <= minLevel {
			levels = append(levels, lvl)
		}
	}
	return &OTLPHook{logger: logger, levels: levels, now: time.Now}
}

func (h *OTLPHook) Levels() []logrus.Level { return h.levels }

func (h *OTLPHook) Fire(entry *logrus.Entry) error {
	var record otellog.Record
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(h.now())
	record.SetSeverity(severity(entry.Level))
	record.SetSeverityText(entry.Level.String())
	record.SetBody(otellog.StringValue(entry.Message))

	attrs := make([]otellog.KeyValue, 0, len(entry.Data))
	for k, v := range entry.Data {
		attrs = append(attrs, attribute(k, v))
	}
	record.AddAttributes(attrs...)

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}

func attribute(key string, v interface{}) otellog.KeyValue {
	switch val := v.(type) {
	case string:
		return otellog.String(key, val)
	case bool:
		return otellog.Bool(key, val)
	case int:
		return otellog.Int(key, val)
	case int64:
		return otellog.Int64(key, val)
	case float64:
		return otellog.Float64(key, val)
	case error:
		return otellog.String(key, val.Error())
	case time.Duration:
		return otellog.Int64(key, val.Milliseconds())
	default:
		return otellog.String(key, fmt.Sprint(val))
	}
}

func severity(level logrus.Level) otellog.Severity {
	switch level {
	case logrus.TraceLevel:
		return otellog.SeverityTrace
	case logrus.DebugLevel:
		return otellog.SeverityDebug
	case logrus.InfoLevel:
		return otellog.SeverityInfo
	case logrus.WarnLevel:
		return otellog.SeverityWarn
	case logrus.ErrorLevel:
		return otellog.SeverityError
	case logrus.FatalLevel:
		return otellog.SeverityFatal
	case logrus.PanicLevel:
		return otellog.SeverityFatal4
	default:
		return otellog.SeverityInfo
	}
}
