package base

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

func TestRetryPolicyExecute(t *testing.T) {
	ctx := context.Background()
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := policy.Execute(ctx, func() error {
		calls++
		if calls < 3 {
			return errors.New(errors.ErrorTypeQuery, "not yet")
		}
		return nil
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = policy.Execute(ctx, func() error {
		calls++
		return errors.New(errors.ErrorTypeQuery, "down")
	}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
	assert.Equal(t, 3, calls)

	calls = 0
	err = policy.Execute(ctx, func() error {
		calls++
		return errors.New(errors.ErrorTypeConfig, "bad dsn")
	}, func(err error) bool { return !errors.IsType(err, errors.ErrorTypeConfig) })
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := NewRetryPolicy(5, time.Hour)
	err := policy.Execute(ctx, func() error { return errors.New(errors.ErrorTypeQuery, "down") }, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := &RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, policy.Delay(0))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 300*time.Millisecond, policy.Delay(5))

	policy.RandomizeFactor = 0.5
	for i := 0; i < 20; i++ {
		d := policy.Delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
	assert.Equal(t, 1, NoRetryPolicy().MaxAttempts)
}
