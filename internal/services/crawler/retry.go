package crawler

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// retryPolicy governs per-page HTTP fetch retries. Crawler errors are
// per-page and "not retried beyond HTTP-client defaults" (spec.md §7),
// so this is intentionally shallow compared to the LLM retry policy.
type retryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{maxAttempts: 1, initialBackoff: 500 * time.Millisecond}
}

func (p retryPolicy) shouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= p.maxAttempts-1 {
		return false
	}
	if statusCode >= 500 || statusCode == 408 || statusCode == 429 {
		return true
	}
	if err != nil {
		return isTransientNetErr(err)
	}
	return false
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.initialBackoff * time.Duration(1<<uint(attempt))
	jitter := time.Duration(float64(d) * 0.2 * (rand.Float64()*2 - 1))
	return d + jitter
}

func isTransientNetErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
