// Package prewarm fills the score cache once per process so the first
// interactive matching run is served mostly from cache.
//
// Clients are scored one at a time by a single queue worker. Failures are
// counted and logged, never returned.
package prewarm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/affinity/internal/adapters/mq/queue"
	"github.com/okian/affinity/internal/adapters/mq/worker"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
)

const (
	defaultQueueSize      = 10000
	workerShutdownTimeout = 5 * time.Second
)

// SizeReporter exposes the local cache size.
type SizeReporter interface {
	SizeLocal() int
}

// Summary describes one prewarm pass.
type Summary struct {
	// Ran is false when the pass was a no-op: already started or cache warm.
	Ran       bool          `json:"ran"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Took      time.Duration `json:"took"`
}

// Option configures a Prewarmer.
type Option func(*Prewarmer)

// WithQueueSize bounds the job queue. Clients beyond it are skipped.
func WithQueueSize(n int) Option {
	return func(p *Prewarmer) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Prewarmer) {
		if l != nil {
			p.logger = l
		}
	}
}

// Prewarmer runs at most one pass per instance.
type Prewarmer struct {
	scorer    worker.ClientScorer
	cache     SizeReporter
	queueSize int
	started   atomic.Bool
	logger    logger.Logger
}

// New creates a Prewarmer.
func New(scorer worker.ClientScorer, cache SizeReporter, opts ...Option) *Prewarmer {
	p := &Prewarmer{
		scorer:    scorer,
		cache:     cache,
		queueSize: defaultQueueSize,
		logger:    logger.Get().Named("prewarm"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Started reports whether a pass has been attempted.
func (p *Prewarmer) Started() bool {
	return p.started.Load()
}

// Run scores every client against every employee, one client at a time.
// It is a no-op after the first call or when the cache already holds entries.
func (p *Prewarmer) Run(ctx context.Context, clients []model.Client, employees []model.Employee) Summary {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Debug(ctx, "prewarm already started")
		return Summary{}
	}
	if n := p.cache.SizeLocal(); n > 0 {
		p.logger.Info(ctx, "cache already warm, skipping prewarm", logger.Int("entries", n))
		return Summary{}
	}

	start := time.Now()
	sum := Summary{Ran: true, Total: len(clients)}
	if len(clients) == 0 || len(employees) == 0 {
		return sum
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
	w := worker.NewInMemoryWorker(q, p.scorer, worker.WithName("prewarm"), worker.WithLogger(p.logger))

	pending := make([]chan queue.Result, 0, len(clients))
	for _, c := range clients {
		done := make(chan queue.Result, 1)
		if !q.Enqueue(ctx, queue.Job{Client: c, Employees: employees, Done: done}) {
			sum.Skipped++
			continue
		}
		pending = append(pending, done)
	}
	_ = q.Close()
	if sum.Skipped > 0 {
		p.logger.Warn(ctx, "prewarm queue rejected clients", logger.Int("skipped", sum.Skipped))
	}

	go w.Run(ctx)

	for i, done := range pending {
		select {
		case res := <-done:
			if res.Err != nil {
				sum.Failed++
			} else {
				sum.Succeeded++
			}
		case <-ctx.Done():
			sum.Skipped += len(pending) - i
			p.logger.Warn(ctx, "prewarm interrupted", logger.Error(ctx.Err()))
			p.finish(w, &sum, start)
			return sum
		}
	}

	p.finish(w, &sum, start)
	return sum
}

func (p *Prewarmer) finish(w *worker.InMemoryWorker, sum *Summary, start time.Time) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		p.logger.Warn(shutdownCtx, "prewarm worker did not stop", logger.Error(err))
	}

	sum.Took = time.Since(start)
	p.logger.Info(context.Background(), "prewarm finished",
		logger.Int("total", sum.Total),
		logger.Int("succeeded", sum.Succeeded),
		logger.Int("failed", sum.Failed),
		logger.Int("skipped", sum.Skipped),
		logger.Duration("took", sum.Took))
}
