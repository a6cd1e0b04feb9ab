package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 30 * time.Second
)

// Config bounds a retried operation: at most MaxAttempts calls, waiting
// BaseDelay doubled after each failed attempt.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Permanent marks err as not worth retrying. The driver surfaces it to the
// caller immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do executes op until it succeeds, returns a permanent error, the context
// is cancelled, or MaxAttempts calls have been made. On exhaustion the last
// error is surfaced.
func Do[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = cfg.BaseDelay << 10
	b.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		v, err := op()
		if err != nil {
			cfg.Logger.Warn("attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.MaxAttempts),
				zap.Error(err),
			)
		}
		return v, err
	}

	return backoff.RetryWithData(
		wrapped,
		backoff.WithContext(
			backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)),
			ctx,
		),
	)
}
