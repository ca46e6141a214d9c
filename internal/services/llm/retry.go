package llm

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy governs backoff for transient LLM failures, grounded on
// GeminiRetryConfig in the teacher's gemini_retry.go.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewRetryPolicy builds a policy with the teacher's defaults, using
// maxRetries from config (falling back to 3 when unset).
func NewRetryPolicy(maxRetries int) *RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryPolicy{
		MaxRetries:        maxRetries,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 1.8,
	}
}

// Backoff computes the wait before the next attempt. apiDelay, when
// positive, is an API-suggested retry-after and takes precedence over
// InitialBackoff. A ±20% jitter avoids every axis's goroutine waking
// in lockstep after a shared rate-limit window.
func (p *RetryPolicy) Backoff(attempt int, apiDelay time.Duration) time.Duration {
	base := p.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= p.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}

	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(backoff))
	backoff += jitter
	if backoff < 0 {
		backoff = 0
	}
	return backoff
}

// IsTransient reports whether err is worth retrying: rate limits,
// timeouts, and context deadline exceeded (but not context.Canceled,
// which signals the caller gave up).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "RESOURCE_EXHAUSTED") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "overloaded") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "timeout")
}

var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses an API-suggested retry-after duration out
// of an error message, returning 0 if none is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
