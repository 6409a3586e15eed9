package pipeline

import (
	"time"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
)

// Report is the outcome of one run. It is also written as summary.json.
type Report struct {
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	State      string    `json:"state"`

	Candidates int              `json:"candidates"`
	Found      []string         `json:"found"`
	Forbidden  []string         `json:"forbidden"`
	NotFound   []string         `json:"not_found"`
	Other      []classify.Entry `json:"other"`

	Takeovers []finding.Finding `json:"takeovers"`
	Bypasses  []finding.Finding `json:"bypasses"`

	// StageMS is the wall time spent in each stage, in milliseconds.
	StageMS map[string]int64 `json:"stage_ms"`
}

func newReport(runID, target, dir string, start time.Time) *Report {
	return &Report{
		RunID:     runID,
		Target:    target,
		OutputDir: dir,
		StartedAt: start,
		State:     Idle.String(),
		Found:     []string{},
		Forbidden: []string{},
		NotFound:  []string{},
		Other:     []classify.Entry{},
		Takeovers: []finding.Finding{},
		Bypasses:  []finding.Finding{},
		StageMS:   map[string]int64{},
	}
}

// Findings returns takeovers followed by bypasses.
func (r *Report) Findings() []finding.Finding {
	out := make([]finding.Finding, 0, len(r.Takeovers)+len(r.Bypasses))
	out = append(out, r.Takeovers...)
	return append(out, r.Bypasses...)
}

func (r *Report) setBuckets(b classify.Buckets) {
	r.Found = b.Found
	r.Forbidden = b.Forbidden
	r.NotFound = b.NotFound
	r.Other = b.Other
}
