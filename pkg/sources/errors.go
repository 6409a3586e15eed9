package sources

import "errors"

// Sentinel errors for candidate source failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrUnknownSource indicates a source name with no implementation.
	ErrUnknownSource = errors.New("sources: unknown source")

	// ErrMissingWordlist indicates the file source was selected without a path.
	ErrMissingWordlist = errors.New("sources: file source requires a wordlist")

	// ErrUpstream indicates a provider answered with an error or an
	// unparseable payload.
	ErrUpstream = errors.New("sources: upstream error")
)
