package assignment

import "time"

// Option configures Assign.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock sets the time stamped on overflow placeholder scores.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
