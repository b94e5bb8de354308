// Retry policy for transient provider failures.
//
// Information Hiding:
// - Backoff algorithm hidden
// - Error classification logic hidden

package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy bounds how often a failed call is repeated.
// MaxAttempts of 0 or 1 means a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns a policy with attempts tries and the default
// backoff.
func DefaultRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backoff returns the delay before the given attempt (1-based retries).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	base, limit := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if limit <= 0 {
		limit = 8 * time.Second
	}
	delay := base * time.Duration(1<<(attempt-1))
	if delay > limit || delay <= 0 {
		delay = limit
	}
	return delay
}

// retryable reports whether err may succeed on a repeat call.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())

	// Don't retry auth failures or malformed requests
	for _, s := range []string{"401", "403", "invalid api key", "unauthorized", "400 bad request"} {
		if strings.Contains(msg, s) {
			return false
		}
	}

	for _, s := range []string{"timeout", "connection", "rate limit", "429", "500", "502", "503", "504", "overloaded", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
