package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
)

// PrometheusHook exposes run metrics for Prometheus scraping.
// It starts an HTTP server that serves metrics at the configured path.
// Metrics include counters for probes, findings and stage transitions,
// gauges for candidates and run duration, and a probe latency histogram.
type PrometheusHook struct {
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry
	opts     PrometheusOptions
	logger   *slog.Logger

	// Counters
	probesTotal   *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	stagesTotal   *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec

	// Gauges
	candidates         *prometheus.GaugeVec
	runDurationSeconds *prometheus.GaugeVec

	// Histograms
	probeLatencySeconds *prometheus.HistogramVec

	target atomic.Value // run target, set when discovery starts
	closed atomic.Bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Addr is the listen address (default ":9090"). Port 0 picks a free port.
	Addr string

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// NewPrometheusHook creates a hook and starts its metrics server. The server
// runs until Close is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Addr == "" {
		opts.Addr = ":9090"
	}
	if opts.Path == "" {
		opts.Path = defaults.MetricsPath
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.Shutdown
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.HookConnect
	}

	// Custom registry, the default one is left alone
	hook := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		opts:     opts,
		logger:   orDefault(opts.Logger),
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := hook.startServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnscan_probes_total",
			Help: "Total number of status probes by bucket",
		},
		[]string{"bucket"},
	)

	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnscan_findings_total",
			Help: "Total number of vulnerability findings",
		},
		[]string{"target", "kind", "severity"},
	)

	h.stagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnscan_stage_transitions_total",
			Help: "Total number of pipeline stage transitions",
		},
		[]string{"state"},
	)

	h.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnscan_runs_total",
			Help: "Total number of finished runs by final state",
		},
		[]string{"state"},
	)

	h.candidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vulnscan_candidates",
			Help: "Candidate subdomains discovered in the last run",
		},
		[]string{"target"},
	)

	h.runDurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vulnscan_run_duration_seconds",
			Help: "Total run duration in seconds",
		},
		[]string{"target"},
	)

	h.probeLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vulnscan_probe_latency_seconds",
			Help:    "Probe latency distribution in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"bucket"},
	)

	collectors := []prometheus.Collector{
		h.probesTotal,
		h.findingsTotal,
		h.stagesTotal,
		h.runsTotal,
		h.candidates,
		h.runDurationSeconds,
		h.probeLatencySeconds,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// startServer binds the listener synchronously so bind errors surface here,
// then serves in the background.
func (h *PrometheusHook) startServer() error {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return err
	}
	h.listener = ln
	h.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("prometheus: metrics server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// OnStage counts transitions and records the final run state.
func (h *PrometheusHook) OnStage(ev pipeline.StageEvent) {
	if h.closed.Load() {
		return
	}
	h.stagesTotal.WithLabelValues(ev.State.String()).Inc()
	switch ev.State {
	case pipeline.Discovering:
		h.target.Store(ev.Target)
	case pipeline.Probing:
		h.candidates.WithLabelValues(ev.Target).Set(float64(ev.Inputs))
	case pipeline.Failed:
		h.runsTotal.WithLabelValues(ev.State.String()).Inc()
	}
}

// OnProbe counts a probe by bucket and records its latency.
// Safe for concurrent use.
func (h *PrometheusHook) OnProbe(res probe.Result) {
	if h.closed.Load() {
		return
	}
	bucket := string(classify.LabelFor(res.Outcome))
	h.probesTotal.WithLabelValues(bucket).Inc()
	if res.Latency > 0 {
		h.probeLatencySeconds.WithLabelValues(bucket).Observe(res.Latency.Seconds())
	}
}

// OnClassified is a no-op; per-probe counters already carry the buckets.
func (h *PrometheusHook) OnClassified(classify.Buckets) {}

// OnFinding counts a finding against the run target.
func (h *PrometheusHook) OnFinding(f finding.Finding) {
	if h.closed.Load() {
		return
	}
	target, _ := h.target.Load().(string)
	h.findingsTotal.WithLabelValues(target, string(f.Kind), string(f.Severity)).Inc()
}

// OnComplete records the run duration.
func (h *PrometheusHook) OnComplete(r *pipeline.Report) {
	if h.closed.Load() {
		return
	}
	h.runsTotal.WithLabelValues(r.State).Inc()
	h.runDurationSeconds.WithLabelValues(r.Target).Set(float64(r.DurationMS) / 1000.0)
}

// Close shuts down the metrics server and releases resources.
func (h *PrometheusHook) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// MetricsAddr returns the URL where metrics are served.
// Useful for testing and logging.
func (h *PrometheusHook) MetricsAddr() string {
	addr := h.opts.Addr
	if h.listener != nil {
		addr = h.listener.Addr().String()
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + h.opts.Path
}
