// Package worker consumes prewarm jobs and scores them one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/affinity/internal/adapters/mq/queue"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

// ClientScorer scores one client against a set of employees, filling the
// score cache as a side effect.
type ClientScorer interface {
	ScoreClient(ctx context.Context, client model.Client, employees []model.Employee) ([]model.ScoredPair, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker handles one job at a time, so scoring calls issued by it
// never overlap.
type InMemoryWorker struct {
	queue  Queue
	scorer ClientScorer
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer ClientScorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	ck := j.Client.Key()

	pairs, err := w.scorer.ScoreClient(ctx, j.Client, j.Employees)
	res := queue.Result{ClientKey: ck, Pairs: len(pairs), Err: err}
	if err != nil {
		metrics.RecordPrewarmClient("error")
		metrics.RecordErrorByComponent("worker", "score_client")
		w.logger.Warn(ctx, "prewarm scoring failed",
			logger.String("client", ck),
			logger.Error(err))
	} else {
		metrics.RecordPrewarmClient("ok")
		w.logger.Debug(ctx, "prewarmed client",
			logger.String("client", ck),
			logger.Int("pairs", len(pairs)),
			logger.Duration("took", time.Since(start)))
	}

	if j.Done != nil {
		select {
		case j.Done <- res:
		default:
			w.logger.Warn(ctx, "dropping job result, done channel full", logger.String("client", ck))
		}
	}
}
