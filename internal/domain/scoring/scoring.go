// Package scoring defines the contract for computing client/employee affinity.
package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/okian/affinity/internal/domain/model"
)

// Scorer computes the affinity of a single client/employee pair.
// Implementations perform no retries and keep no cache of their own.
type Scorer interface {
	// Score returns ErrUnavailable when the backend cannot be reached and
	// ErrScoring for any other per-pair failure.
	Score(ctx context.Context, client model.Client, employee model.Employee) (model.ScorePair, error)
	// HealthCheck reports whether the backend answers. It never fails.
	HealthCheck(ctx context.Context) bool
}

// Warmer is implemented by scorers that benefit from a warm-up call
// before being re-checked.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Default scoring configuration constants.
const (
	defaultRandomSeed = 42
	maxScoreValue     = 100

	semanticWeight = 0.5
	industryWeight = 0.25
	skillsWeight   = 0.25

	industryBonus = 10
	skillsBonus   = 5
	sizeBonus     = 5
)

// Option applies a configuration option to the InMemoryScorer.
type Option func(*InMemoryScorer)

// WithLatencyRange sets the simulated latency range. Zero disables it.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *InMemoryScorer) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeed reseeds the latency generator.
func WithSeed(seed int64) Option {
	return func(s *InMemoryScorer) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // latency jitter only
	}
}

// InMemoryScorer is a local, deterministic Scorer. It compares the token sets
// of both profiles and adds rule-based bonuses the way the remote service does.
// It is used when no scoring service is configured and in tests.
type InMemoryScorer struct {
	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewInMemoryScorer creates a new in-memory scorer with configuration options.
func NewInMemoryScorer(opts ...Option) *InMemoryScorer {
	s := &InMemoryScorer{
		rng: rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score computes the affinity of client and employee.
func (s *InMemoryScorer) Score(ctx context.Context, client model.Client, employee model.Employee) (model.ScorePair, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return model.ScorePair{}, err
	}

	clientTokens := tokenSet(client.Name, client.Industry, client.Needs, client.Profile)
	employeeTokens := tokenSet(append([]string{employee.Department, employee.Profile}, employee.Specialties...)...)
	if len(clientTokens) == 0 || len(employeeTokens) == 0 {
		return model.ScorePair{}, fmt.Errorf("%w: empty profile for %s/%s", ErrScoring, client.Key(), employee.Key())
	}

	semantic := jaccard(clientTokens, employeeTokens)
	industry := coverage(tokenSet(client.Industry), employeeTokens)
	skills := coverage(tokenSet(client.Needs), tokenSet(employee.Specialties...))
	overall := semanticWeight*semantic + industryWeight*industry + skillsWeight*skills

	total := overall * maxScoreValue
	var reasons []string
	if industry > 0 {
		total += industryBonus
		reasons = append(reasons, fmt.Sprintf("industry experience: %s", client.Industry))
	}
	if skills >= 0.5 {
		total += skillsBonus
		reasons = append(reasons, "specialties cover client needs")
	}
	if client.Size != "" && employeeTokens[strings.ToLower(client.Size)] {
		total += sizeBonus
		reasons = append(reasons, fmt.Sprintf("handles %s accounts", strings.ToLower(client.Size)))
	}
	if len(reasons) == 0 {
		reasons = []string{"profile similarity"}
	}

	return model.ScorePair{
		SemanticScore:     semantic,
		IndustryAlignment: industry,
		SkillsMatch:       skills,
		OverallSimilarity: overall,
		Confidence:        math.Min(1, 0.4+0.6*overall),
		TotalScore:        math.Max(0, math.Min(maxScoreValue, total)),
		Reasons:           reasons,
		ComputedAt:        s.now(),
	}, nil
}

// HealthCheck always reports healthy unless ctx is done.
func (s *InMemoryScorer) HealthCheck(ctx context.Context) bool {
	return ctx.Err() == nil
}

// Warmup is a no-op.
func (s *InMemoryScorer) Warmup(ctx context.Context) error {
	return ctx.Err()
}

func (s *InMemoryScorer) simulateLatency(ctx context.Context) error {
	if s.maxLatency <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrScoring, err)
		}
		return nil
	}

	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		s.mu.Lock()
		latency += time.Duration(s.rng.Int63n(int64(span)))
		s.mu.Unlock()
	}

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: context cancelled: %w", ErrScoring, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// tokenSet lowercases and splits text on anything that is not a letter or digit.
func tokenSet(texts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, text := range texts {
		for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len(tok) > 2 {
				set[tok] = true
			}
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// coverage is the share of want found in have.
func coverage(want, have map[string]bool) float64 {
	if len(want) == 0 {
		return 0
	}
	hit := 0
	for tok := range want {
		if have[tok] {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}
