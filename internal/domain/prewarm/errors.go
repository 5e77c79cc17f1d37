package prewarm

import "errors"

// ErrAlreadyStarted is returned by callers that refuse to start a second pass.
var ErrAlreadyStarted = errors.New("prewarm already started")
