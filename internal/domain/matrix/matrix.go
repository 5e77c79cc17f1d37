// Package matrix builds the scored client x employee matrix.
//
// Scores come from the cache when present and from the scorer otherwise.
// A pair that fails with scoring.ErrScoring is left out of the matrix; a
// scoring.ErrUnavailable aborts the whole build so the caller can degrade.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultConcurrency = 8
)

// Cache is the subset of the score cache the builder needs.
type Cache interface {
	Get(ctx context.Context, clientKey, employeeKey string) (model.ScorePair, bool)
	Put(ctx context.Context, clientKey, employeeKey string, pair model.ScorePair)
}

// Builder is safe for concurrent use; each call returns its own matrix.
type Builder struct {
	scorer      scoring.Scorer
	cache       Cache
	inflight    singleflight.Group
	callTimeout time.Duration
	concurrency int
	logger      logger.Logger
}

// New creates a Builder over scorer and cache.
func New(scorer scoring.Scorer, cache Cache, opts ...Option) *Builder {
	b := &Builder{
		scorer:      scorer,
		cache:       cache,
		callTimeout: defaultCallTimeout,
		concurrency: defaultConcurrency,
		logger:      logger.Get().Named("matrix"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build scores every client against every employee and returns the pairs
// sorted by TotalScore desc, then client key, then employee key.
func (b *Builder) Build(ctx context.Context, clients []model.Client, employees []model.Employee) ([]model.ScoredPair, error) {
	pairs, err := b.build(ctx, clients, employees, b.concurrency)
	if err != nil {
		return nil, err
	}
	metrics.RecordMatrixPairs(len(pairs))
	return pairs, nil
}

// ScoreClient scores one client against every employee, one scorer call at
// a time regardless of the configured concurrency. Prewarm uses it to fill
// the cache without loading the scoring dependency.
func (b *Builder) ScoreClient(ctx context.Context, client model.Client, employees []model.Employee) ([]model.ScoredPair, error) {
	return b.build(ctx, []model.Client{client}, employees, 1)
}

type slot struct {
	pair model.ScoredPair
	ok   bool
}

func (b *Builder) build(ctx context.Context, clients []model.Client, employees []model.Employee, limit int) ([]model.ScoredPair, error) {
	if len(clients) == 0 || len(employees) == 0 {
		return []model.ScoredPair{}, nil
	}

	slots := make([]slot, len(clients)*len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range clients {
		for j := range employees {
			idx := i*len(employees) + j
			client, employee := clients[i], employees[j]
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				score, err := b.score(gctx, client, employee)
				switch {
				case err == nil:
					slots[idx] = slot{pair: model.ScoredPair{Client: client, Employee: employee, Score: score}, ok: true}
					return nil
				case errors.Is(err, scoring.ErrUnavailable):
					return err
				default:
					if gctx.Err() == nil {
						metrics.RecordSkippedPair()
						b.logger.Warn(gctx, "skipping pair after scoring failure",
							logger.String("client", client.Key()),
							logger.String("employee", employee.Key()),
							logger.Error(err))
					}
					return nil
				}
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}

	pairs := make([]model.ScoredPair, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			pairs = append(pairs, s.pair)
		}
	}
	Sort(pairs)
	return pairs, nil
}

// score serves a pair from the cache or the scorer. Concurrent requests for
// the same pair share one scorer call. The shared call runs detached from
// any single caller, bounded by the call timeout, so one caller giving up
// does not fail the others; each caller stops waiting on its own ctx.
func (b *Builder) score(ctx context.Context, client model.Client, employee model.Employee) (model.ScorePair, error) {
	ck, ek := client.Key(), employee.Key()
	if pair, ok := b.cache.Get(ctx, ck, ek); ok {
		return pair, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := b.inflight.DoChan(ck+"|"+ek, func() (interface{}, error) {
		// Another caller may have filled the cache while we waited.
		if pair, ok := b.cache.Get(flightCtx, ck, ek); ok {
			return pair, nil
		}
		callCtx := flightCtx
		if b.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(flightCtx, b.callTimeout)
			defer cancel()
		}
		pair, err := b.scorer.Score(callCtx, client, employee)
		if err != nil {
			return nil, err
		}
		b.cache.Put(flightCtx, ck, ek, pair)
		return pair, nil
	})

	select {
	case <-ctx.Done():
		return model.ScorePair{}, fmt.Errorf("%w: %w", scoring.ErrScoring, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.RecordInflightShared()
		}
		if res.Err != nil {
			return model.ScorePair{}, res.Err
		}
		return res.Val.(model.ScorePair), nil
	}
}

// Sort orders pairs by TotalScore desc, then client key asc, then employee key asc.
func Sort(pairs []model.ScoredPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Score.TotalScore != b.Score.TotalScore {
			return a.Score.TotalScore > b.Score.TotalScore
		}
		if ak, bk := a.Client.Key(), b.Client.Key(); ak != bk {
			return ak < bk
		}
		return a.Employee.Key() < b.Employee.Key()
	})
}
