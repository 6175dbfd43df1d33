package feeds

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/resilience"
)

// ErrorKind is the short tag reported in FeedHealth.LastError.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindCanceled      ErrorKind = "canceled"
	KindNetwork       ErrorKind = "network"
	KindRateLimited   ErrorKind = "http_429"
	KindClientError   ErrorKind = "http_4xx"
	KindServerError   ErrorKind = "http_5xx"
	KindHTML          ErrorKind = "html_response"
	KindContentType   ErrorKind = "invalid_content_type"
	KindInvalidJSON   ErrorKind = "invalid_json"
	KindUpstream      ErrorKind = "upstream_error"
	KindMissingAPIKey ErrorKind = "missing_api_key"
	KindCircuitOpen   ErrorKind = "circuit_open"
	KindUnknown       ErrorKind = "unknown"
)

// FetchError describes why an upstream call failed.
type FetchError struct {
	Source     models.SourceTag
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
// Client errors, HTML pages and undecodable bodies are final.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindRateLimited, KindServerError:
		return true
	default:
		return false
	}
}

// countsAgainstUpstream reports whether the failure says something about the
// upstream's health. Bad keys and caller cancellation do not.
func (e *FetchError) countsAgainstUpstream() bool {
	switch e.Kind {
	case KindClientError, KindMissingAPIKey, KindCanceled, KindCircuitOpen:
		return false
	default:
		return true
	}
}

// IsRetryable is the retry predicate for feed requests.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}

func countable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.countsAgainstUpstream()
	}
	return true
}

// Tag returns the short error tag for err.
func Tag(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return string(KindCircuitOpen)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(KindTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return string(KindCanceled)
	}
	return string(KindUnknown)
}

// classifyTransportError maps an http.Client error to a FetchError.
func classifyTransportError(ctx context.Context, source models.SourceTag, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &FetchError{Source: source, Kind: kind, Err: err}
}

func statusKind(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindServerError
	default:
		return KindClientError
	}
}
