// Package resilience holds the retry policy and circuit breaker shared by
// the feed adapters.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy describes how many attempts an operation gets and how long to
// wait between them.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is multiplied by the attempt number to get the wait after
	// that attempt.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable decides whether an error deserves another attempt. Nil
	// retries everything except context errors.
	Retryable func(error) bool
}

// DefaultFeedPolicy is one retry with a 350ms linear backoff.
func DefaultFeedPolicy(retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		Attempts:  2,
		BaseDelay: 350 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		Retryable: retryable,
	}
}

// Backoff returns the wait after the given 1-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// IsRetryable applies the policy predicate. Context cancellation is never retried.
func (p RetryPolicy) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return !errors.Is(err, context.DeadlineExceeded)
	}
	return p.Retryable(err)
}

// Retrier runs operations under a RetryPolicy.
type Retrier struct {
	policy RetryPolicy
	logger *logrus.Logger
	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier. Attempts below 1 are raised to 1.
func NewRetrier(policy RetryPolicy, logger *logrus.Logger) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Retrier{policy: policy, logger: logger, sleep: sleepContext}
}

// Policy returns the retry policy in use.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// ExecuteWithRetry runs operation until it succeeds, returns a
// non-retryable error, or runs out of attempts. The attempt number passed
// to operation starts at 1.
func (r *Retrier) ExecuteWithRetry(ctx context.Context, operationName string, operation func(ctx context.Context, attempt int) error) error {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				r.logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}
		lastErr = err

		if attempt == r.policy.Attempts || !r.policy.IsRetryable(err) {
			break
		}

		delay := r.policy.Backoff(attempt)
		r.logger.WithFields(logrus.Fields{
			"operation": operationName,
			"attempt":   attempt,
			"error":     err.Error(),
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
