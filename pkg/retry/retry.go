package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPermanent marks an error that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// Config holds retry configuration
type Config struct {
	Name            string
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// DefaultConfig returns a default retry configuration with 1 minute max timeout
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Do executes fn with exponential backoff until it succeeds, returns a
// permanent error, or the attempt/time budget runs out.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	prefix := ""
	if cfg.Name != "" {
		prefix = cfg.Name + ": "
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt-1, err, lastErr)
			}
			return fmt.Errorf("%sretry aborted: %w", prefix, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPermanent) {
			return err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%smax retry attempts (%d) exceeded: %w", prefix, cfg.MaxAttempts, lastErr)
}
