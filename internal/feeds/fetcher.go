package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/resilience"
)

const (
	// DefaultTimeout bounds one adapter call, retries included.
	DefaultTimeout = 10 * time.Second
	MinTimeout     = 8 * time.Second
	MaxTimeout     = 12 * time.Second

	maxBodyBytes     = 10 << 20
	defaultUserAgent = "mto-floor-go/1.0"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Source     models.SourceTag
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      resilience.RetryPolicy
	Breaker    *resilience.CircuitBreaker
	Logger     *logrus.Logger
	UserAgent  string
}

// Fetcher performs JSON GET requests against one upstream with a bounded
// time budget, retries, HTML error page detection and a circuit breaker.
type Fetcher struct {
	source    models.SourceTag
	client    *http.Client
	timeout   time.Duration
	retrier   *resilience.Retrier
	breaker   *resilience.CircuitBreaker
	logger    *logrus.Logger
	userAgent string
	tracer    trace.Tracer
}

// NewFetcher creates a Fetcher. A zero timeout means DefaultTimeout;
// configuration passes timeouts through ClampTimeout first.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = resilience.DefaultFeedPolicy(nil)
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = IsRetryable
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		source:    cfg.Source,
		client:    cfg.HTTPClient,
		timeout:   timeout,
		retrier:   resilience.NewRetrier(cfg.Retry, cfg.Logger),
		breaker:   cfg.Breaker,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
		tracer:    otel.Tracer("github.com/irfndi/mto-floor-go/internal/feeds"),
	}
}

// ClampTimeout forces d into [MinTimeout, MaxTimeout]; zero means DefaultTimeout.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

// Timeout returns the per-call budget.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// GetJSON fetches rawURL and decodes the JSON body into out. The whole call,
// retries included, is bounded by the fetcher timeout.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	ctx, span := f.tracer.Start(ctx, "feeds.GetJSON", trace.WithAttributes(
		attribute.String("feed.source", string(f.source)),
		attribute.String("http.url", redactURL(rawURL)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	call := func(ctx context.Context) error {
		return f.retrier.ExecuteWithRetry(ctx, string(f.source), func(ctx context.Context, attempt int) error {
			span.SetAttributes(attribute.Int("feed.attempts", attempt))
			return f.do(ctx, rawURL, out)
		})
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Execute(ctx, call, countable)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = &FetchError{Source: f.source, Kind: KindCircuitOpen, Err: err}
		}
	} else {
		err = call(ctx)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Tag(err))
	}
	return err
}

func (f *Fetcher) do(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, f.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classifyTransportError(ctx, f.source, err)
	}

	// HTML wins over the status code: proxy error pages are not retried.
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if looksLikeHTML(contentType, body) {
		return &FetchError{Source: f.source, Kind: KindHTML, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode >= 400 {
		return &FetchError{
			Source:     f.source,
			Kind:       statusKind(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
	}
	if contentType != "" && !strings.Contains(contentType, "json") {
		return &FetchError{Source: f.source, Kind: KindContentType, StatusCode: resp.StatusCode, Message: contentType}
	}

	if msg := upstreamMessage(body); msg != "" && !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return &FetchError{Source: f.source, Kind: KindUpstream, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Source: f.source, Kind: KindInvalidJSON, StatusCode: resp.StatusCode, Err: err}
	}

	f.logger.WithFields(logrus.Fields{
		"source": f.source,
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("Feed response received")
	return nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype")) || bytes.HasPrefix(head, []byte("<html"))
}

// upstreamMessage extracts {"message": "..."} from an error object body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// redactURL strips query secrets such as apiKey before the URL is recorded.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"apiKey", "api_key", "key"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
