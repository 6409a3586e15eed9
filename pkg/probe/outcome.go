package probe

import (
	"strconv"
	"time"
)

// Outcome is either an HTTP status code or Unreachable.
// The zero value is Unreachable.
type Outcome struct {
	code int
}

// Unreachable is the outcome of any request that produced no HTTP response.
var Unreachable = Outcome{}

// Status returns the outcome for an HTTP response with the given code.
func Status(code int) Outcome {
	return Outcome{code: code}
}

// Code returns the status code and true, or 0 and false when unreachable.
func (o Outcome) Code() (int, bool) {
	return o.code, o.code != 0
}

// IsUnreachable reports whether no HTTP response was received.
func (o Outcome) IsUnreachable() bool {
	return o.code == 0
}

// Is reports whether the outcome is a response with exactly code.
func (o Outcome) Is(code int) bool {
	return o.code != 0 && o.code == code
}

func (o Outcome) String() string {
	if o.IsUnreachable() {
		return "unreachable"
	}
	return strconv.Itoa(o.code)
}

// Result pairs a host with the outcome of one request to it.
type Result struct {
	Host    string
	Method  string
	Outcome Outcome
	Latency time.Duration

	// Err is the transport error behind an Unreachable outcome, kept for logs.
	Err error
}
