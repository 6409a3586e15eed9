package store

import "errors"

// Sentinel errors for result persistence. Both are fatal to a run.
var (
	// ErrCreateDir indicates the per-target directory could not be created.
	ErrCreateDir = errors.New("store: cannot create output directory")

	// ErrWrite indicates a result file could not be written.
	ErrWrite = errors.New("store: cannot write result file")
)
