package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/affinity/internal/adapters/cache"
	"github.com/okian/affinity/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingClearer struct{ err error }

func (f failingClearer) ClearCache(context.Context) error { return f.err }

// memRemote is a RemoteStore kept in a map.
type memRemote struct {
	mu       sync.Mutex
	items    map[string]model.ScorePair
	clearErr error
}

func newMemRemote() *memRemote { return &memRemote{items: map[string]model.ScorePair{}} }

func (m *memRemote) Get(_ context.Context, key string) (model.ScorePair, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[key]
	return p, ok, nil
}

func (m *memRemote) Set(_ context.Context, key string, pair model.ScorePair, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = pair
	return nil
}

func (m *memRemote) Clear(context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string]model.ScorePair{}
	return nil
}

func TestCache_GetPut(t *testing.T) {
	Convey("Given a cache with a controllable clock", t, func() {
		clk := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
		c := cache.New(cache.WithClock(clk.Now))
		ctx := context.Background()
		pair := model.ScorePair{TotalScore: 72, ComputedAt: clk.Now()}

		Convey("When nothing was stored", func() {
			_, ok := c.Get(ctx, "c1", "e1")

			Convey("Then the lookup misses", func() {
				So(ok, ShouldBeFalse)
				So(c.SizeLocal(), ShouldEqual, 0)
			})
		})

		Convey("When a score is stored twice", func() {
			c.Put(ctx, "c1", "e1", pair)
			c.Put(ctx, "c1", "e1", pair)
			got, ok := c.Get(ctx, "c1", "e1")

			Convey("Then one entry is kept and returned unchanged", func() {
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, pair)
				So(c.SizeLocal(), ShouldEqual, 1)
			})
		})

		Convey("When the pair is looked up in the other direction", func() {
			c.Put(ctx, "c1", "e1", pair)
			_, ok := c.Get(ctx, "e1", "c1")

			Convey("Then it misses", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the TTL has not elapsed yet", func() {
			c.Put(ctx, "c1", "e1", pair)
			clk.Advance(cache.DefaultTTL)
			_, ok := c.Get(ctx, "c1", "e1")

			Convey("Then the entry is still served", func() {
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the TTL has elapsed", func() {
			c.Put(ctx, "c1", "e1", pair)
			clk.Advance(cache.DefaultTTL + time.Second)

			Convey("Then the entry is absent and purged on lookup", func() {
				So(c.SizeLocal(), ShouldEqual, 1)
				_, ok := c.Get(ctx, "c1", "e1")
				So(ok, ShouldBeFalse)
				So(c.SizeLocal(), ShouldEqual, 0)
			})
		})

		Convey("When an already expired score is stored", func() {
			c.Put(ctx, "c1", "e1", model.ScorePair{ComputedAt: clk.Now().Add(-time.Hour)})

			Convey("Then it is dropped", func() {
				So(c.SizeLocal(), ShouldEqual, 0)
			})
		})
	})
}

func TestCache_Bounded(t *testing.T) {
	Convey("Given a cache bounded to two entries", t, func() {
		c := cache.New(cache.WithMaxEntries(2))
		ctx := context.Background()
		now := time.Now()

		c.Put(ctx, "c1", "e", model.ScorePair{ComputedAt: now})
		c.Put(ctx, "c2", "e", model.ScorePair{ComputedAt: now})
		c.Put(ctx, "c3", "e", model.ScorePair{ComputedAt: now})

		Convey("Then the oldest entry is evicted", func() {
			So(c.SizeLocal(), ShouldEqual, 2)
			_, ok := c.Get(ctx, "c1", "e")
			So(ok, ShouldBeFalse)
			_, ok = c.Get(ctx, "c3", "e")
			So(ok, ShouldBeTrue)
		})
	})
}

func TestCache_Clear(t *testing.T) {
	Convey("Given a cache holding scores", t, func() {
		ctx := context.Background()
		now := time.Now()
		remote := newMemRemote()

		Convey("When every remote tier clears", func() {
			c := cache.New(cache.WithRemote(remote))
			c.Put(ctx, "c1", "e1", model.ScorePair{ComputedAt: now})
			err := c.Clear(ctx)

			Convey("Then both tiers are empty", func() {
				So(err, ShouldBeNil)
				So(c.SizeLocal(), ShouldEqual, 0)
				_, ok, _ := remote.Get(ctx, cache.Key("c1", "e1"))
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a remote clearer fails", func() {
			c := cache.New(cache.WithRemoteClearer(failingClearer{err: errors.New("connection refused")}))
			c.Put(ctx, "c1", "e1", model.ScorePair{ComputedAt: now})
			err := c.Clear(ctx)

			Convey("Then ErrClear is returned and local entries survive", func() {
				So(errors.Is(err, cache.ErrClear), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "connection refused")
				So(c.SizeLocal(), ShouldEqual, 1)
			})

			Convey("And ClearLocal still empties the local tier", func() {
				c.ClearLocal()
				So(c.SizeLocal(), ShouldEqual, 0)
			})
		})

		Convey("When the remote store fails to clear", func() {
			remote.clearErr = errors.New("redis down")
			c := cache.New(cache.WithRemote(remote))
			c.Put(ctx, "c1", "e1", model.ScorePair{ComputedAt: now})

			Convey("Then ErrClear is returned", func() {
				So(errors.Is(c.Clear(ctx), cache.ErrClear), ShouldBeTrue)
				So(c.SizeLocal(), ShouldEqual, 1)
			})
		})
	})
}

func TestCache_RemoteTier(t *testing.T) {
	Convey("Given two caches sharing a remote store", t, func() {
		ctx := context.Background()
		remote := newMemRemote()
		a := cache.New(cache.WithRemote(remote))
		b := cache.New(cache.WithRemote(remote))
		pair := model.ScorePair{TotalScore: 88, ComputedAt: time.Now()}

		a.Put(ctx, "c1", "e1", pair)

		Convey("When the other replica looks the pair up", func() {
			got, ok := b.Get(ctx, "c1", "e1")

			Convey("Then it is served from the remote tier and kept locally", func() {
				So(ok, ShouldBeTrue)
				So(got.TotalScore, ShouldEqual, 88)
				So(b.SizeLocal(), ShouldEqual, 1)
			})
		})
	})
}

func TestCache_Concurrency(t *testing.T) {
	Convey("Given concurrent readers and writers", t, func() {
		c := cache.New()
		ctx := context.Background()
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					key := fmt.Sprintf("c%d", j)
					c.Put(ctx, key, "e", model.ScorePair{TotalScore: float64(j), ComputedAt: time.Now()})
					c.Get(ctx, key, "e")
					if i == 0 && j == 25 {
						c.ClearLocal()
					}
				}
			}(i)
		}
		wg.Wait()

		Convey("Then the cache stays consistent", func() {
			So(c.SizeLocal(), ShouldBeLessThanOrEqualTo, 50)
		})
	})
}
