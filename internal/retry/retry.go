// Package retry repeats actuator calls until they succeed.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultDelay is the pause between attempts when not configured.
const DefaultDelay = 2 * time.Second

// Option configures Forever.
type Option func(*options)

type options struct {
	delay   time.Duration
	logger  *slog.Logger
	onRetry func(attempt int, err error)
}

// WithDelay sets the constant pause between attempts.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnRetry registers a function called after each failed attempt that
// will be retried.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// Forever calls fn until it returns nil. The pause between attempts is
// constant and there is no limit on attempts or elapsed time. It returns early
// only when ctx is done, with the context's cause.
func Forever(ctx context.Context, name string, fn func(context.Context) error, opts ...Option) error {
	o := options{
		delay:  DefaultDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		return struct{}{}, fn(ctx)
	}

	notify := func(err error, next time.Duration) {
		o.logger.Warn("actuator call failed; retrying",
			"action", name,
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
		if o.onRetry != nil {
			o.onRetry(attempt, err)
		}
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(o.delay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return fmt.Errorf("failed to complete %s after %d attempts; %w", name, attempt, err)
	}

	if attempt > 1 {
		o.logger.Info("actuator call succeeded after retries", "action", name, "attempts", attempt)
	}
	return nil
}
