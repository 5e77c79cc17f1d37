package service

import (
	"time"

	"github.com/okian/affinity/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScoringTimeout bounds each scoring call made while building a matrix.
func WithScoringTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.scoringTimeout = d
		}
	}
}

// WithHealthRetries sets the re-checks done after a failed health check.
func WithHealthRetries(attempts int, interval time.Duration) Option {
	return func(s *Service) {
		if attempts >= 0 {
			s.healthRetries = attempts
		}
		if interval >= 0 {
			s.healthInterval = interval
		}
	}
}

// WithPrewarmQueueSize bounds the prewarm job queue.
func WithPrewarmQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.prewarmQueueSize = size
		}
	}
}

// WithMatrixConcurrency sets how many pairs are scored at once per run.
func WithMatrixConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.matrixConcurrency = n
		}
	}
}

// WithClock overrides the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
