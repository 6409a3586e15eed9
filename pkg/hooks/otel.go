package hooks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
)

// OTelHook exports run telemetry to an OpenTelemetry collector.
// Each run is a root span with one child span per stage; findings are
// recorded as span events.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu        sync.Mutex
	rootSpan  trace.Span
	rootCtx   context.Context
	stageSpan trace.Span
	findings  int
	closed    bool

	// Written by concurrent OnProbe calls.
	probes      atomic.Int64
	unreachable atomic.Int64
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "vuln-scan").
	ServiceName string

	// Insecure uses insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout is the timeout for graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout is the timeout for establishing connection (default: 10s).
	ConnectionTimeout time.Duration
}

func (o *OTelOptions) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.Endpoint == "" {
		o.Endpoint = defaults.OTelEndpoint
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.Shutdown
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.HookConnect
	}
}

// NewOTelHook creates a hook exporting over OTLP/gRPC. Connection failures
// are handled by the exporter in the background and never block a run.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	opts.applyDefaults()

	grpcOpts := []grpc.DialOption{}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithDialOption(grpcOpts...),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	hook := newOTelHook(opts, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(hook.tracerProvider)
	return hook, nil
}

// newOTelHook builds the hook around a span processor option.
func newOTelHook(opts OTelOptions, processor sdktrace.TracerProviderOption) *OTelHook {
	opts.applyDefaults()

	// Avoid merging with resource.Default to prevent schema conflicts
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "pipeline"),
	)

	tp := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer("vulnscan/pipeline"),
	}
}

// OnStage opens the root span on Discovering and one child span per stage.
func (h *OTelHook) OnStage(ev pipeline.StageEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	if ev.State == pipeline.Discovering {
		h.endSpans()
		h.findings = 0
		h.probes.Store(0)
		h.unreachable.Store(0)
		h.rootCtx, h.rootSpan = h.tracer.Start(context.Background(), "vulnscan.run",
			trace.WithTimestamp(ev.At),
			trace.WithAttributes(
				attribute.String("run_id", ev.RunID),
				attribute.String("target", ev.Target),
			),
		)
	}
	if h.rootSpan == nil {
		return
	}

	if h.stageSpan != nil {
		h.stageSpan.End(trace.WithTimestamp(ev.At))
		h.stageSpan = nil
	}

	switch ev.State {
	case pipeline.Failed:
		if ev.Err != nil {
			h.rootSpan.RecordError(ev.Err)
			h.rootSpan.SetStatus(codes.Error, ev.Err.Error())
		} else {
			h.rootSpan.SetStatus(codes.Error, "run failed")
		}
		h.rootSpan.End(trace.WithTimestamp(ev.At))
		h.rootSpan = nil
	case pipeline.Done:
		// The root span is closed by OnComplete, which carries the totals.
	default:
		_, h.stageSpan = h.tracer.Start(h.rootCtx, "vulnscan.stage."+ev.State.String(),
			trace.WithTimestamp(ev.At),
			trace.WithAttributes(attribute.Int("inputs", ev.Inputs)),
		)
	}
}

// OnProbe counts probes. Safe for concurrent use.
func (h *OTelHook) OnProbe(res probe.Result) {
	h.probes.Add(1)
	if res.Outcome.IsUnreachable() {
		h.unreachable.Add(1)
	}
}

// OnClassified records bucket sizes on the root span.
func (h *OTelHook) OnClassified(b classify.Buckets) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.rootSpan == nil {
		return
	}
	h.rootSpan.AddEvent("classified", trace.WithAttributes(
		attribute.Int64("probes", h.probes.Load()),
		attribute.Int64("unreachable", h.unreachable.Load()),
		attribute.Int("found", len(b.Found)),
		attribute.Int("forbidden", len(b.Forbidden)),
		attribute.Int("not_found", len(b.NotFound)),
		attribute.Int("other", len(b.Other)),
	))
}

// OnFinding records a finding as a span event.
func (h *OTelHook) OnFinding(f finding.Finding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.rootSpan == nil {
		return
	}
	h.findings++

	attrs := []attribute.KeyValue{
		attribute.String("host", f.Host),
		attribute.String("kind", string(f.Kind)),
		attribute.String("severity", string(f.Severity)),
		attribute.String("evidence", f.Evidence),
	}
	if f.Method != "" {
		attrs = append(attrs, attribute.String("method", f.Method))
	}
	if f.Provider != "" {
		attrs = append(attrs, attribute.String("provider", f.Provider))
	}
	h.rootSpan.AddEvent("finding", trace.WithAttributes(attrs...))
}

// OnComplete adds run totals and ends the root span.
func (h *OTelHook) OnComplete(r *pipeline.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.rootSpan == nil {
		return
	}

	h.rootSpan.SetAttributes(
		attribute.Int("totals.candidates", r.Candidates),
		attribute.Int("totals.found", len(r.Found)),
		attribute.Int("totals.forbidden", len(r.Forbidden)),
		attribute.Int("totals.not_found", len(r.NotFound)),
		attribute.Int("totals.other", len(r.Other)),
		attribute.Int("totals.takeovers", len(r.Takeovers)),
		attribute.Int("totals.bypasses", len(r.Bypasses)),
		attribute.Int64("timing.duration_ms", r.DurationMS),
	)

	if h.findings > 0 {
		h.rootSpan.SetStatus(codes.Error, fmt.Sprintf("Completed with %d findings", h.findings))
	} else {
		h.rootSpan.SetStatus(codes.Ok, "Completed successfully")
	}
	h.rootSpan.End(trace.WithTimestamp(r.FinishedAt))
	h.rootSpan = nil
}

// endSpans ends any open spans. Callers hold h.mu.
func (h *OTelHook) endSpans() {
	if h.stageSpan != nil {
		h.stageSpan.End()
		h.stageSpan = nil
	}
	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}
}

// Close shuts down the tracer provider and flushes any pending telemetry.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.endSpans()

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint returns the OTLP endpoint being used.
// Useful for testing and logging.
func (h *OTelHook) Endpoint() string {
	return h.opts.Endpoint
}

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string {
	return h.opts.ServiceName
}
