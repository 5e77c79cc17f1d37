package degraded

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/affinity/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithRetries sets how many re-checks follow a failed health check and the
// pause before each one.
func WithRetries(attempts int, interval time.Duration) Option {
	return func(c *Controller) {
		if attempts >= 0 {
			c.retries = attempts
		}
		if interval >= 0 {
			c.interval = interval
		}
	}
}

// WithSleep replaces the wait between re-checks. Tests use it to avoid real sleeps.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithRand sets the source of fallback scores.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithClock overrides the time source for fallback scores.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
