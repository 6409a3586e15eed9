package main

import (
	"errors"

	"github.com/waftester/vulnscan/pkg/config"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/sources"
	"github.com/waftester/vulnscan/pkg/store"
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps an error to the process exit code. Errors without an
// explicit code are classified by their sentinel.
func exitCode(err error) int {
	if err == nil {
		return defaults.ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, store.ErrCreateDir), errors.Is(err, store.ErrWrite):
		return defaults.ExitFilesystemError
	case errors.Is(err, pipeline.ErrInvalidTarget),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, sources.ErrUnknownSource),
		errors.Is(err, sources.ErrMissingWordlist):
		return defaults.ExitUserError
	default:
		return defaults.ExitInternalError
	}
}
