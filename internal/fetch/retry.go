package fetch

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryPolicy configures exponential-backoff retry behavior for transient
// fetch failures (network errors, 5xx, 429). It does not cover
// CAPTCHA/block handling, which the caller routes through the health
// monitor and the target-crawl cool-down instead.
type RetryPolicy struct {
	MaxRetries int           // additional attempts beyond the first
	BaseDelay  time.Duration // initial backoff delay
	MaxDelay   time.Duration // backoff cap
}

// DefaultRetryPolicy returns 2 retries (3 attempts total), 1s base delay,
// 30s max delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// attemptResult is the minimal shape retryWithBackoff needs to decide
// whether to try again.
type attemptResult struct {
	status int
	err    error
}

// retryWithBackoff calls attempt until it succeeds, a non-retryable result
// is observed, or the policy's retries are exhausted. attempt is expected
// to perform one HTTP round trip and report its outcome via attemptResult.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, attempt func() attemptResult) attemptResult {
	backoff := policy.BaseDelay
	var last attemptResult

	for i := 0; i <= policy.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return attemptResult{err: ctx.Err()}
			case <-time.After(backoff):
				backoff = min(backoff*2, policy.MaxDelay)
			}
		}

		last = attempt()
		if !shouldRetry(last) {
			return last
		}
	}
	return last
}

// shouldRetry reports whether an attempt's result warrants another try:
// network errors, HTTP 429, and HTTP 5xx are retryable; other 4xx are not.
func shouldRetry(r attemptResult) bool {
	if r.status == 429 || r.status >= 500 {
		return true
	}
	if r.status >= 400 {
		return false
	}
	if r.err != nil {
		return isRetryableError(r.err)
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return false
}

// classifyTransport turns a network-level error into an attemptResult with
// no status code, for uniform handling in retryWithBackoff.
func classifyTransport(err error) attemptResult {
	return attemptResult{err: err}
}
