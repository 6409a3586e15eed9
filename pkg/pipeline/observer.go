package pipeline

import (
	"time"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/probe"
)

// StageEvent announces entry into a state.
type StageEvent struct {
	RunID  string
	Target string
	State  State
	At     time.Time

	// Inputs is the number of items the stage starts with: candidates for
	// Probing, hosts read back for Analyzing, findings for PersistingFindings.
	Inputs int

	// Err is set when State is Failed.
	Err error
}

// Observer receives pipeline events. OnProbe may be called from several
// goroutines at once; every other method is called from the Run goroutine.
type Observer interface {
	OnStage(ev StageEvent)
	OnProbe(res probe.Result)
	OnClassified(b classify.Buckets)
	OnFinding(f finding.Finding)
	OnComplete(r *Report)
}

// NopObserver implements Observer with no-ops. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnStage(StageEvent) {}
func (NopObserver) OnProbe(probe.Result) {}
func (NopObserver) OnClassified(classify.Buckets) {}
func (NopObserver) OnFinding(finding.Finding) {}
func (NopObserver) OnComplete(*Report) {}

type observers []Observer

func (o observers) stage(ev StageEvent) {
	for _, obs := range o {
		obs.OnStage(ev)
	}
}

func (o observers) probe(res probe.Result) {
	for _, obs := range o {
		obs.OnProbe(res)
	}
}

func (o observers) classified(b classify.Buckets) {
	for _, obs := range o {
		obs.OnClassified(b)
	}
}

func (o observers) finding(f finding.Finding) {
	for _, obs := range o {
		obs.OnFinding(f)
	}
}

func (o observers) complete(r *Report) {
	for _, obs := range o {
		obs.OnComplete(r)
	}
}
