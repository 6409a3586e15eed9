// Package pipeline sequences discovery, status probing, classification and
// the two vulnerability checks for one target, and owns the files written
// between those stages.
//
// Every round is a barrier: results are gathered in memory once all probes
// of the round have finished and are then written by the Run goroutine
// alone. Discovery and probe failures never stop a run; only filesystem
// errors do.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/waftester/vulnscan/pkg/bypass"
	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/hostname"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/runner"
	"github.com/waftester/vulnscan/pkg/store"
	"github.com/waftester/vulnscan/pkg/subtakeover"
)

// Discoverer returns the candidate hostnames for a domain. It must not fail;
// an unusable upstream yields an empty set.
type Discoverer interface {
	Discover(ctx context.Context, domain string) *hostname.Set
}

// Prober issues single requests. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, host, method string) probe.Result
	Fetch(ctx context.Context, host string) (probe.Result, []byte)
}

// Config configures a Pipeline.
type Config struct {
	// Concurrency is the worker count of every round (default defaults.Concurrency).
	Concurrency int

	// OutputRoot is the parent of the per-target directory (default ".").
	OutputRoot string

	// Signatures is the takeover signature set (default subtakeover.DefaultSignatures).
	Signatures []subtakeover.Signature

	// Methods is the bypass method order (default bypass.DefaultMethods).
	Methods []string

	Logger *slog.Logger
}

// Pipeline runs one target once.
type Pipeline struct {
	cfg        Config
	discoverer Discoverer
	prober     Prober
	observers  observers
	logger     *slog.Logger

	started atomic.Bool
	state   atomic.Int32
}

// New returns an Idle pipeline.
func New(cfg Config, d Discoverer, p Prober, obs ...Observer) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = defaults.OutputRoot
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		discoverer: d,
		prober:     p,
		observers:  observers(obs),
		logger:     cfg.Logger,
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// run carries the per-run bookkeeping.
type run struct {
	p          *Pipeline
	report     *Report
	store      *store.Store
	stageStart time.Time
	stage      State
}

func (r *run) enter(s State, inputs int) {
	now := time.Now()
	if r.stage != Idle {
		r.report.StageMS[r.stage.String()] = now.Sub(r.stageStart).Milliseconds()
	}
	r.stage, r.stageStart = s, now
	r.report.State = s.String()
	r.p.state.Store(int32(s))
	r.p.logger.Debug("pipeline stage",
		slog.String("run_id", r.report.RunID),
		slog.String("state", s.String()),
		slog.Int("inputs", inputs),
	)
	r.p.observers.stage(StageEvent{
		RunID:  r.report.RunID,
		Target: r.report.Target,
		State:  s,
		At:     now,
		Inputs: inputs,
	})
}

func (r *run) fail(err error) (*Report, error) {
	now := time.Now()
	r.report.State = Failed.String()
	r.report.FinishedAt = now
	r.report.DurationMS = now.Sub(r.report.StartedAt).Milliseconds()
	r.p.state.Store(int32(Failed))
	r.p.logger.Error("pipeline failed",
		slog.String("run_id", r.report.RunID),
		slog.String("stage", r.stage.String()),
		slog.String("error", err.Error()),
	)
	r.p.observers.stage(StageEvent{
		RunID:  r.report.RunID,
		Target: r.report.Target,
		State:  Failed,
		At:     now,
		Err:    err,
	})
	return r.report, err
}

// Run executes every stage for target. The returned error is non-nil only
// for an invalid target, a reused pipeline, or a filesystem failure; in the
// last case the partial report is returned too.
func (p *Pipeline) Run(ctx context.Context, target string) (*Report, error) {
	domain, err := hostname.Target(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, target, err)
	}
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	st := store.New(p.cfg.OutputRoot, domain)
	r := &run{
		p:      p,
		store:  st,
		report: newReport(uuid.NewString(), domain, st.Dir(), time.Now()),
	}

	r.enter(Discovering, 0)
	candidates := p.discoverer.Discover(ctx, domain).Sorted()
	r.report.Candidates = len(candidates)

	r.enter(Probing, len(candidates))
	buckets := classify.Classify(p.probeAll(ctx, candidates))
	r.report.setBuckets(buckets)
	p.observers.classified(buckets)

	r.enter(PersistingBuckets, buckets.Total())
	if err := st.Ensure(); err != nil {
		return r.fail(err)
	}
	persisted := buckets.Persisted()
	for _, name := range slices.Sorted(maps.Keys(persisted)) {
		if err := st.WriteList(name, persisted[name]); err != nil {
			return r.fail(err)
		}
	}

	notFound, err := st.ReadList(classify.NotFoundFile)
	if err != nil {
		return r.fail(err)
	}
	forbidden, err := st.ReadList(classify.ForbiddenFile)
	if err != nil {
		return r.fail(err)
	}

	r.enter(Analyzing, len(notFound)+len(forbidden))
	r.report.Takeovers = subtakeover.NewChecker(p.prober, p.cfg.Signatures, p.logger).
		CheckAll(ctx, notFound, p.cfg.Concurrency)
	r.report.Bypasses = bypass.NewChecker(p.prober, p.cfg.Methods, p.logger).
		CheckAll(ctx, forbidden, p.cfg.Concurrency)
	for _, f := range r.report.Findings() {
		p.observers.finding(f)
	}

	r.enter(PersistingFindings, len(r.report.Takeovers)+len(r.report.Bypasses))
	if err := st.WriteList(store.TakeoverFile, finding.Hosts(r.report.Takeovers, finding.KindTakeover)); err != nil {
		return r.fail(err)
	}
	if err := st.WriteList(store.BypassFile, finding.Hosts(r.report.Bypasses, finding.KindForbiddenBypass)); err != nil {
		return r.fail(err)
	}

	// The summary describes the finished run, so it is stamped Done before
	// the transition that makes it so.
	summary := *r.report
	summary.State = Done.String()
	summary.FinishedAt = time.Now()
	summary.DurationMS = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()
	if err := st.WriteJSON(store.SummaryFile, &summary); err != nil {
		return r.fail(err)
	}

	r.enter(Done, 0)
	r.report.FinishedAt = summary.FinishedAt
	r.report.DurationMS = summary.DurationMS
	p.observers.complete(r.report)
	return r.report, nil
}

// probeAll sends one GET per host and returns one result per host.
func (p *Pipeline) probeAll(ctx context.Context, hosts []string) []probe.Result {
	rn := runner.NewRunner[probe.Result]()
	rn.Concurrency = p.cfg.Concurrency
	rn.OnProgress = func(_, _ int64, res runner.Result[probe.Result]) {
		p.observers.probe(probeResult(res))
	}

	results := rn.Run(ctx, hosts, func(ctx context.Context, host string) (probe.Result, error) {
		return p.prober.Probe(ctx, host, http.MethodGet), nil
	})

	out := make([]probe.Result, len(results))
	for i, res := range results {
		out[i] = probeResult(res)
	}
	p.logger.Debug("probe round complete",
		slog.Int64("completed", rn.Stats.Completed),
		slog.Int64("panicked", rn.Stats.Panicked),
		slog.Float64("rps", rn.Stats.RPS()),
	)
	return out
}

// probeResult unwraps a runner result. A panicking probe still counts as a
// probe of its host and is recorded as unreachable.
func probeResult(res runner.Result[probe.Result]) probe.Result {
	if res.Error != nil {
		return probe.Result{Host: res.Target, Method: http.MethodGet, Outcome: probe.Unreachable, Err: res.Error}
	}
	return res.Data
}
