// Package base holds helpers shared by connectors.
package base

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64
}

// NewRetryPolicy creates a new retry policy with exponential backoff
func NewRetryPolicy(maxAttempts int, initialDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialDelay:    initialDelay,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// DefaultRetryPolicy is used when connecting to databases.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, 200*time.Millisecond)
}

// NoRetryPolicy returns a policy that doesn't retry
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// Execute calls fn until it succeeds, shouldRetry rejects its error, or the
// attempts run out. A nil shouldRetry retries every error. The last error is
// returned unchanged so callers keep its type.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	attempts := max(rp.MaxAttempts, 1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(rp.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "retry cancelled").
				WithDetail("last_error", lastErr.Error())
		case <-timer.C:
		}
	}
	return lastErr
}

// Delay returns the wait before retry number attempt+1.
func (rp *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt))
	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	// jitter
	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		delay = delay - delta + rand.Float64()*2*delta
	}
	return time.Duration(delay)
}
