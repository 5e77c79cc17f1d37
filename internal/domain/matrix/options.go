package matrix

import (
	"time"

	"github.com/okian/affinity/pkg/logger"
)

// Option configures a Builder.
type Option func(*Builder)

// WithCallTimeout bounds each scorer call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d >= 0 {
			b.callTimeout = d
		}
	}
}

// WithConcurrency sets how many pairs are scored at once. Values below one mean one.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}
