package service

import "errors"

// ErrNotStarted is returned by operations that need Start to have been called.
var ErrNotStarted = errors.New("service not started")
