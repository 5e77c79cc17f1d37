// Package cache is the score cache shared by every matching run.
//
// Entries are keyed by (client key, employee key) and expire TTL after the
// score was computed. Expired entries are purged lazily on lookup. An optional
// remote store lets replicas share scores; optional clearers are wiped
// together with it on Clear.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

// DefaultTTL is the lifetime of a cached score.
const DefaultTTL = 5 * time.Minute

// RemoteStore is a shared cache tier.
type RemoteStore interface {
	Get(ctx context.Context, key string) (model.ScorePair, bool, error)
	Set(ctx context.Context, key string, pair model.ScorePair, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Clearer is anything holding scores that must be dropped on Clear.
type Clearer interface {
	ClearCache(ctx context.Context) error
}

// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	local *localStore

	ttl      time.Duration
	now      func() time.Time
	remote   RemoteStore
	clearers []Clearer
	logger   logger.Logger
}

// New creates a cache with the default TTL and no remote tier.
func New(opts ...Option) *Cache {
	c := &Cache{
		local:  newLocalStore(),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger.Get().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key of a pair.
func Key(clientKey, employeeKey string) string {
	return clientKey + "|" + employeeKey
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) expired(pair model.ScorePair) bool {
	return c.now().Sub(pair.ComputedAt) > c.ttl
}

// Get returns the cached score of a pair if present and not expired.
func (c *Cache) Get(ctx context.Context, clientKey, employeeKey string) (model.ScorePair, bool) {
	key := Key(clientKey, employeeKey)

	c.mu.RLock()
	pair, ok := c.local.get(key)
	c.mu.RUnlock()

	if ok && !c.expired(pair) {
		metrics.RecordCacheLookup("local", true)
		return pair, true
	}
	if ok {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if cur, still := c.local.get(key); still && c.expired(cur) {
			c.local.remove(key)
		}
		size := c.local.size()
		c.mu.Unlock()
		metrics.UpdateCacheSize(size)
	}
	metrics.RecordCacheLookup("local", false)

	if c.remote == nil {
		return model.ScorePair{}, false
	}

	pair, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, "remote cache lookup failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "remote_get")
	}
	if err != nil || !ok || c.expired(pair) {
		metrics.RecordCacheLookup("remote", false)
		return model.ScorePair{}, false
	}
	metrics.RecordCacheLookup("remote", true)

	c.mu.Lock()
	c.local.put(key, pair)
	size := c.local.size()
	c.mu.Unlock()
	metrics.UpdateCacheSize(size)

	return pair, true
}

// Put stores a score. Remote write failures are logged, never returned.
func (c *Cache) Put(ctx context.Context, clientKey, employeeKey string, pair model.ScorePair) {
	if c.expired(pair) {
		return
	}
	key := Key(clientKey, employeeKey)

	c.mu.Lock()
	c.local.put(key, pair)
	size := c.local.size()
	c.mu.Unlock()
	metrics.UpdateCacheSize(size)

	if c.remote == nil {
		return
	}
	remaining := c.ttl - c.now().Sub(pair.ComputedAt)
	if err := c.remote.Set(ctx, key, pair, remaining); err != nil {
		c.logger.Warn(ctx, "remote cache write failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "remote_set")
	}
}

// Clear wipes every remote tier and then the local tier. If any remote tier
// fails the local tier is left untouched and the error wraps ErrClear.
func (c *Cache) Clear(ctx context.Context) error {
	var errs []error
	if c.remote != nil {
		if err := c.remote.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cl := range c.clearers {
		if err := cl.ClearCache(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		metrics.RecordErrorByComponent("cache", "clear")
		return fmt.Errorf("%w: %w", ErrClear, errors.Join(errs...))
	}

	c.clearLocal()
	metrics.RecordCacheClear("all")
	return nil
}

// ClearLocal wipes the in-process tier only. It cannot fail.
func (c *Cache) ClearLocal() {
	c.clearLocal()
	metrics.RecordCacheClear("local")
}

func (c *Cache) clearLocal() {
	c.mu.Lock()
	c.local.clear()
	c.mu.Unlock()
	metrics.UpdateCacheSize(0)
}

// SizeLocal returns the number of local entries, expired ones included
// until a lookup purges them.
func (c *Cache) SizeLocal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local.size()
}
