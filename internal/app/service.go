// Package service wires the matching engine together and exposes the
// operations used by the HTTP API: MatchAll, Refresh, MatchesForEmployee
// and Prewarm.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/affinity/internal/domain/assignment"
	"github.com/okian/affinity/internal/domain/degraded"
	"github.com/okian/affinity/internal/domain/matrix"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/prewarm"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultScoringTimeout    = 10 * time.Second
	defaultHealthRetries     = 2
	defaultHealthInterval    = time.Second
	defaultPrewarmQueueSize  = 10000
	defaultMatrixConcurrency = 8
)

// Cache is the score cache as the service uses it.
type Cache interface {
	matrix.Cache
	Clear(ctx context.Context) error
	ClearLocal()
	SizeLocal() int
}

// Service implements the API dependencies for the matching engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	scorer     scoring.Scorer
	cache      Cache
	builder    *matrix.Builder
	controller *degraded.Controller
	prewarmer  *prewarm.Prewarmer

	// Configuration
	scoringTimeout    time.Duration
	healthRetries     int
	healthInterval    time.Duration
	prewarmQueueSize  int
	matrixConcurrency int
	now               func() time.Time

	// State
	started     bool
	runCtx      context.Context
	cancel      context.CancelFunc
	background  sync.WaitGroup
	lastPrewarm atomic.Pointer[prewarm.Summary]
	prewarmOnce atomic.Bool

	runs         atomic.Int64
	fallbackRuns atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a Service over a scorer and a shared score cache.
func New(scorer scoring.Scorer, cache Cache, opts ...Option) *Service {
	s := &Service{
		scorer:            scorer,
		cache:             cache,
		scoringTimeout:    defaultScoringTimeout,
		healthRetries:     defaultHealthRetries,
		healthInterval:    defaultHealthInterval,
		prewarmQueueSize:  defaultPrewarmQueueSize,
		matrixConcurrency: defaultMatrixConcurrency,
		now:               time.Now,
		logger:            logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.builder = matrix.New(scorer, cache,
		matrix.WithCallTimeout(s.scoringTimeout),
		matrix.WithConcurrency(s.matrixConcurrency),
	)
	s.controller = degraded.New(scorer,
		degraded.WithRetries(s.healthRetries, s.healthInterval),
	)
	s.prewarmer = prewarm.New(s.builder, cache,
		prewarm.WithQueueSize(s.prewarmQueueSize),
	)

	return s
}

// Start marks the service as running and creates the context background
// work runs under.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Duration("scoringTimeout", s.scoringTimeout),
		logger.Int("healthRetries", s.healthRetries),
		logger.Int("prewarmQueueSize", s.prewarmQueueSize),
	)
	return nil
}

// Stop cancels background work and waits for it to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping matching service...")
	s.cancel()
	s.started = false
	s.mu.Unlock()

	s.background.Wait()
	s.logger.Info(context.Background(), "matching service stopped")
}

// MatchAll produces a balanced assignment of the clients of the given kind.
// The degraded-mode decision is made once, up front; if the scorer becomes
// unreachable while the matrix is built the run falls back as well.
func (s *Service) MatchAll(ctx context.Context, clients []model.Client, employees []model.Employee, kind model.ClientKind) (model.AssignmentResult, error) {
	start := time.Now()
	if kind == "" {
		kind = model.KindAll
	}
	subset := model.FilterByKind(clients, kind)
	if len(employees) == 0 {
		metrics.RecordMatchRun(string(kind), "error", 0)
		return model.AssignmentResult{}, fmt.Errorf("match %s: %w", kind, assignment.ErrNoEmployees)
	}

	result, err := s.match(ctx, subset, employees)
	if err != nil {
		metrics.RecordMatchRun(string(kind), "error", float64(time.Since(start).Milliseconds()))
		return model.AssignmentResult{}, fmt.Errorf("match %s: %w", kind, err)
	}

	result.RunID = uuid.NewString()
	result.Kind = kind
	result.GeneratedAt = s.now()

	s.runs.Add(1)
	if result.Mode == model.ModeFallback {
		s.fallbackRuns.Add(1)
	}
	took := time.Since(start)
	metrics.RecordMatchRun(string(kind), string(result.Mode), float64(took.Milliseconds()))
	s.logger.Info(ctx, "matching run finished",
		logger.String("runID", result.RunID),
		logger.String("kind", string(kind)),
		logger.String("mode", string(result.Mode)),
		logger.Int("clients", len(subset)),
		logger.Int("employees", len(employees)),
		logger.Int("quota", result.Quota),
		logger.Duration("took", took),
	)
	return result, nil
}

func (s *Service) match(ctx context.Context, clients []model.Client, employees []model.Employee) (model.AssignmentResult, error) {
	if !s.controller.IsAvailable(ctx) {
		return s.controller.FallbackAssign(clients, employees)
	}

	pairs, err := s.builder.Build(ctx, clients, employees)
	if errors.Is(err, scoring.ErrUnavailable) {
		s.logger.Warn(ctx, "scoring became unavailable during run, using fallback assignment", logger.Error(err))
		metrics.RecordAvailability(false)
		return s.controller.FallbackAssign(clients, employees)
	}
	if err != nil {
		return model.AssignmentResult{}, err
	}
	return assignment.Assign(pairs, clients, employees, assignment.WithClock(s.now))
}

// Refresh clears the score cache and runs MatchAll. When a remote tier cannot
// be cleared only the local tier is dropped; the failure is logged, not returned.
func (s *Service) Refresh(ctx context.Context, clients []model.Client, employees []model.Employee, kind model.ClientKind) (model.AssignmentResult, error) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn(ctx, "remote cache clear failed, clearing local cache only", logger.Error(err))
		s.cache.ClearLocal()
		metrics.RecordCacheClear("local_fallback")
	}
	return s.MatchAll(ctx, clients, employees, kind)
}

// MatchesForEmployee returns the ordered assignments of one employee, or nil
// when the employee has none.
func (s *Service) MatchesForEmployee(result model.AssignmentResult, employeeID string) []model.Assignment {
	return result.ForEmployee(employeeID)
}

// Prewarm fills the cache synchronously. Only the first call does any work.
func (s *Service) Prewarm(ctx context.Context, clients []model.Client, employees []model.Employee) prewarm.Summary {
	sum := s.prewarmer.Run(ctx, clients, employees)
	if sum.Ran {
		s.lastPrewarm.Store(&sum)
	}
	return sum
}

// StartPrewarm runs Prewarm in the background under the service context.
func (s *Service) StartPrewarm(clients []model.Client, employees []model.Employee) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.prewarmer.Started() || !s.prewarmOnce.CompareAndSwap(false, true) {
		return prewarm.ErrAlreadyStarted
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.Prewarm(s.runCtx, clients, employees)
	}()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.cache.SizeLocal()
	metrics.UpdateCacheSize(size)

	stats := map[string]interface{}{
		"started":        s.started,
		"cacheEntries":   size,
		"runs":           s.runs.Load(),
		"fallbackRuns":   s.fallbackRuns.Load(),
		"prewarmStarted": s.prewarmer.Started(),
	}
	if sum := s.lastPrewarm.Load(); sum != nil {
		stats["prewarm"] = *sum
	}
	return stats
}
