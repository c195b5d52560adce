package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		Name:          "test",
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return Permanent(errors.New("bad handshake"))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func(ctx context.Context) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
