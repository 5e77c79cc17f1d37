package cache

import (
	"time"

	"github.com/okian/affinity/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long a score stays valid after it was computed.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the local tier. When full the oldest entry is evicted.
// Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.local.maxSize = n
	}
}

// WithClock overrides the time source. Tests use it to expire entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRemote adds a shared store consulted after a local miss.
func WithRemote(store RemoteStore) Option {
	return func(c *Cache) {
		c.remote = store
	}
}

// WithRemoteClearer registers a tier that must be cleared by Clear,
// such as the scoring service's own cache.
func WithRemoteClearer(cl Clearer) Option {
	return func(c *Cache) {
		if cl != nil {
			c.clearers = append(c.clearers, cl)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
