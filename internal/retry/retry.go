// Package retry owns the submission retry policy. Submission is the only
// retried operation: a poll is idempotent and the pollers time out on their
// own, while a duplicated submission would spend quota twice.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

// Sleeper performs retry waits. Injectable for tests.
type Sleeper func(context.Context, time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller applies a fixed delay between submission attempts. MaxRetries
// is the number of retries after the first attempt, so MaxRetries = 2 means
// at most three calls.
type Controller struct {
	maxRetries int
	delay      time.Duration
	sleeper    Sleeper
}

// Option customizes a Controller.
type Option func(*Controller)

// WithSleeper overrides how retry waits are performed.
func WithSleeper(sleeper Sleeper) Option {
	return func(c *Controller) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// New builds a Controller with the given retry count and inter-attempt delay.
func New(maxRetries int, delay time.Duration, opts ...Option) *Controller {
	if maxRetries < 0 {
		maxRetries = 0
	}
	c := &Controller{maxRetries: maxRetries, delay: delay, sleeper: sleepWithContext}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do invokes fn until it succeeds, fails permanently, or the retry budget is
// spent. Only errors marked ErrTransient are retried; configuration,
// permanent, and timeout failures surface immediately. The attempt number
// passed to fn is 1-based. Cancellation surfaces as ErrInterrupted.
func (c *Controller) Do(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrInterrupted, "retry", op, "canceled", err)
		}

		lastErr = fn(services.WithAttempt(ctx, attempt), attempt)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, services.ErrTransient) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if err := c.sleeper(ctx, c.delay); err != nil {
			return services.Wrap(services.ErrInterrupted, "retry", op, "canceled during backoff", err)
		}
	}

	return services.Wrap(services.ErrTransient, "retry", op, "exhausted", lastErr)
}
