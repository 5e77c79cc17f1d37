// Package degraded decides whether semantic scoring can be used for a run
// and produces the fallback assignment when it cannot.
package degraded

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/affinity/internal/domain/assignment"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	defaultRetries  = 2
	defaultInterval = time.Second

	fallbackMinScore = 60
	fallbackMaxScore = 100
)

// Controller holds no availability state between runs; every run asks again.
type Controller struct {
	checker  scoring.Scorer
	retries  int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand

	now    func() time.Time
	logger logger.Logger
}

// New creates a Controller backed by checker.
func New(checker scoring.Scorer, opts ...Option) *Controller {
	c := &Controller{
		checker:  checker,
		retries:  defaultRetries,
		interval: defaultInterval,
		sleep:    sleepCtx,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // fallback scores are cosmetic
		now:      time.Now,
		logger:   logger.Get().Named("degraded"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAvailable health-checks the scorer. After a failure it sends one warm-up
// request, when the scorer supports it, then re-checks up to the configured
// number of times, pausing before each re-check.
func (c *Controller) IsAvailable(ctx context.Context) bool {
	available := c.check(ctx)
	metrics.RecordAvailability(available)
	if !available {
		c.logger.Warn(ctx, "semantic scoring unavailable, using fallback assignment",
			logger.Int("attempts", c.retries+1))
	}
	return available
}

func (c *Controller) check(ctx context.Context) bool {
	if c.checker.HealthCheck(ctx) {
		return true
	}

	if w, ok := c.checker.(scoring.Warmer); ok {
		if err := w.Warmup(ctx); err != nil {
			c.logger.Debug(ctx, "warm-up call failed", logger.Error(err))
		}
	}

	for i := 0; i < c.retries; i++ {
		if err := c.sleep(ctx, c.interval); err != nil {
			return false
		}
		if c.checker.HealthCheck(ctx) {
			c.logger.Info(ctx, "scoring service recovered", logger.Int("recheck", i+1))
			return true
		}
	}
	return false
}

// FallbackAssign splits clients into contiguous ranges of quota size, in
// input order, one range per employee. Scores are random in [60,100].
func (c *Controller) FallbackAssign(clients []model.Client, employees []model.Employee) (model.AssignmentResult, error) {
	if len(employees) == 0 {
		return model.AssignmentResult{}, assignment.ErrNoEmployees
	}

	quota := model.Quota(len(clients), len(employees))
	result := model.AssignmentResult{
		Mode:        model.ModeFallback,
		Quota:       quota,
		Assignments: make(map[string][]model.Assignment, len(employees)),
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range employees {
		start := min(i*quota, len(clients))
		end := min(start+quota, len(clients))
		list := make([]model.Assignment, 0, end-start)
		for _, cl := range clients[start:end] {
			list = append(list, model.Assignment{
				Client: cl,
				Score: model.ScorePair{
					TotalScore: float64(fallbackMinScore + c.rng.Intn(fallbackMaxScore-fallbackMinScore+1)),
					Reasons:    []string{model.ReasonFallback},
					ComputedAt: now,
				},
			})
		}
		result.Assignments[e.Key()] = list
	}

	metrics.RecordAssignments("fallback", len(clients))
	return result, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
