package runner

import "errors"

// ErrTaskPanic wraps a value recovered from a panicking task.
var ErrTaskPanic = errors.New("runner: task panicked")
