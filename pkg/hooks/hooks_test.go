package hooks

import (
	"errors"
	"time"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
)

const testRunID = "run-1"

func stageEvent(s pipeline.State, inputs int) pipeline.StageEvent {
	return pipeline.StageEvent{
		RunID:  testRunID,
		Target: "example.com",
		State:  s,
		At:     time.Now(),
		Inputs: inputs,
	}
}

func testBuckets() classify.Buckets {
	return classify.Classify([]probe.Result{
		{Host: "a.example.com", Outcome: probe.Status(200)},
		{Host: "b.example.com", Outcome: probe.Status(404)},
		{Host: "c.example.com", Outcome: probe.Status(403)},
		{Host: "d.example.com", Outcome: probe.Status(500)},
		{Host: "e.example.com", Outcome: probe.Unreachable},
	})
}

func testFindings() []finding.Finding {
	return []finding.Finding{
		{
			Host:     "b.example.com",
			Kind:     finding.KindTakeover,
			Evidence: "NoSuchBucket",
			Provider: "AWS S3",
			Severity: finding.High,
		},
		{
			Host:     "c.example.com",
			Kind:     finding.KindForbiddenBypass,
			Method:   "OPTIONS",
			Evidence: "OPTIONS returned 200",
			Severity: finding.Medium,
		},
	}
}

// replayRun drives obs through a complete successful run.
func replayRun(obs pipeline.Observer) *pipeline.Report {
	b := testBuckets()
	obs.OnStage(stageEvent(pipeline.Discovering, 0))
	obs.OnStage(stageEvent(pipeline.Probing, 5))
	for _, h := range []string{"a", "b", "c", "d"} {
		obs.OnProbe(probe.Result{Host: h + ".example.com", Method: "GET", Outcome: probe.Status(200), Latency: 20 * time.Millisecond})
	}
	obs.OnProbe(probe.Result{Host: "e.example.com", Method: "GET", Outcome: probe.Unreachable, Err: errors.New("dial tcp: refused")})
	obs.OnClassified(b)
	obs.OnStage(stageEvent(pipeline.PersistingBuckets, b.Total()))
	obs.OnStage(stageEvent(pipeline.Analyzing, 2))
	fs := testFindings()
	for _, f := range fs {
		obs.OnFinding(f)
	}
	obs.OnStage(stageEvent(pipeline.PersistingFindings, len(fs)))
	obs.OnStage(stageEvent(pipeline.Done, 0))

	r := &pipeline.Report{
		RunID:      testRunID,
		Target:     "example.com",
		OutputDir:  "out/example.com",
		State:      pipeline.Done.String(),
		FinishedAt: time.Now(),
		DurationMS: 1500,
		Candidates: 5,
		Found:      b.Found,
		Forbidden:  b.Forbidden,
		NotFound:   b.NotFound,
		Other:      b.Other,
		Takeovers:  fs[:1],
		Bypasses:   fs[1:],
	}
	obs.OnComplete(r)
	return r
}
