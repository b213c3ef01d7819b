package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries around a single external call. Transient failures
// (rate limits, timeouts, 5xx, network) are retried with exponential backoff;
// everything else fails immediately.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs op until it succeeds, returns a permanent error, or the attempt
// budget is exhausted. A cancelled context aborts between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Permanent marks err as non-retryable regardless of its message.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsTransient reports whether err looks like a provider rate limit, a
// transient server error, or a network hiccup. Classification is by message
// because providers rarely expose typed errors across SDK boundaries.
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

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())

	// Rate limits
	if containsAny(msg, "rate limit", "quota exceeded", "429", "resource exhausted", "resource_exhausted") {
		return true
	}

	// Transient server errors
	if containsAny(msg, "500", "502", "503", "504", "unavailable", "internal error") {
		return true
	}

	// Network errors
	if containsAny(msg, "connection reset", "connection refused", "timeout", "temporary", "eof") {
		return true
	}

	return false
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
