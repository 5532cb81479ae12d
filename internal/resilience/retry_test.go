package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    10 * time.Millisecond,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return eris.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		attempts++
		return eris.New("still failing")
	})
	require.Error(t, err)
	assert.Equal(t, 5, attempts)
	assert.Contains(t, err.Error(), "still failing")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		attempts++
		return Permanent(eris.New("bad request"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, IsPermanent(err))
}

func TestDoValReturnsValue(t *testing.T) {
	attempts := 0
	val, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", eris.New("transient")
		}
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", val)
	assert.Equal(t, 2, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, fastPolicy(), func(ctx context.Context) error {
		attempts++
		cancel()
		return eris.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoCallsOnRetry(t *testing.T) {
	var retries []int
	p := fastPolicy()
	p.MaxAttempts = 3
	p.OnRetry = func(attempt int, err error) {
		retries = append(retries, attempt)
	}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		return eris.New("transient")
	})
	require.Error(t, err)
	// Two retries follow the first failed attempt.
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDelayExponentialBackoff(t *testing.T) {
	p := Policy{BaseDelay: time.Second, Multiplier: 2.0, MaxDelay: 30 * time.Second}

	assert.Equal(t, time.Second, Delay(p, 0))
	assert.Equal(t, 2*time.Second, Delay(p, 1))
	assert.Equal(t, 4*time.Second, Delay(p, 2))
	assert.Equal(t, 16*time.Second, Delay(p, 4))
	// Capped at MaxDelay.
	assert.Equal(t, 30*time.Second, Delay(p, 10))
}

func TestIsPermanentOnWrappedError(t *testing.T) {
	err := eris.Wrap(Permanent(eris.New("inner")), "outer")
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(eris.New("plain")))
	assert.NoError(t, Permanent(nil))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.InDelta(t, 2.0, p.Multiplier, 0.001)
}
