package scoring

import "errors"

// Sentinel errors returned by Scorer implementations.
var (
	// ErrUnavailable means the scoring dependency cannot be reached at all.
	// Callers switch to degraded mode.
	ErrUnavailable = errors.New("scoring service unavailable")

	// ErrScoring means a single pair could not be scored. Callers skip the pair.
	ErrScoring = errors.New("scoring failed")
)
