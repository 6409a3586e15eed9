package pipeline

import "errors"

var (
	// ErrInvalidTarget indicates a target that is not a registrable domain.
	ErrInvalidTarget = errors.New("pipeline: invalid target")

	// ErrAlreadyRun indicates Run was called on a pipeline that left Idle.
	ErrAlreadyRun = errors.New("pipeline: already run")
)
