package cache

import "errors"

// Sentinel errors for the score cache.
var (
	// ErrClear means a remote tier could not be cleared. Local entries are kept.
	ErrClear = errors.New("cache clear failed")

	ErrInvalidPrefix = errors.New("redis key prefix must not be empty")
)
