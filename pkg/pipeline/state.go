package pipeline

// State is a pipeline stage. A run moves strictly forward through
// Idle, Discovering, Probing, PersistingBuckets, Analyzing,
// PersistingFindings and Done. Failed is reached only on a filesystem error.
type State int32

const (
	Idle State = iota
	Discovering
	Probing
	PersistingBuckets
	Analyzing
	PersistingFindings
	Done
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	Discovering:        "discovering",
	Probing:            "probing",
	PersistingBuckets:  "persisting-buckets",
	Analyzing:          "analyzing",
	PersistingFindings: "persisting-findings",
	Done:               "done",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
