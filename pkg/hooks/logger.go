package hooks

import (
	"log/slog"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
)

// LoggerHook writes pipeline events as structured log records.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook returns a hook logging to l (nil means slog.Default()).
func NewLoggerHook(l *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(l)}
}

func (h *LoggerHook) OnStage(ev pipeline.StageEvent) {
	if ev.State == pipeline.Failed {
		attrs := []any{
			slog.String("run_id", ev.RunID),
			slog.String("target", ev.Target),
		}
		if ev.Err != nil {
			attrs = append(attrs, slog.String("error", ev.Err.Error()))
		}
		h.logger.Error("run failed", attrs...)
		return
	}
	h.logger.Info("stage",
		slog.String("run_id", ev.RunID),
		slog.String("target", ev.Target),
		slog.String("state", ev.State.String()),
		slog.Int("inputs", ev.Inputs),
	)
}

// OnProbe logs each probe at debug level. Safe for concurrent use.
func (h *LoggerHook) OnProbe(res probe.Result) {
	attrs := []any{
		slog.String("host", res.Host),
		slog.String("method", res.Method),
		slog.String("outcome", res.Outcome.String()),
		slog.Duration("latency", res.Latency),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	h.logger.Debug("probe", attrs...)
}

func (h *LoggerHook) OnClassified(b classify.Buckets) {
	h.logger.Info("classified",
		slog.Int("found", len(b.Found)),
		slog.Int("forbidden", len(b.Forbidden)),
		slog.Int("not_found", len(b.NotFound)),
		slog.Int("other", len(b.Other)),
	)
	for _, e := range b.Other {
		h.logger.Debug("unclassified outcome",
			slog.String("host", e.Host),
			slog.String("outcome", e.Status),
		)
	}
}

func (h *LoggerHook) OnFinding(f finding.Finding) {
	h.logger.Warn("finding",
		slog.String("host", f.Host),
		slog.String("kind", string(f.Kind)),
		slog.String("severity", string(f.Severity)),
		slog.String("evidence", f.Evidence),
	)
}

func (h *LoggerHook) OnComplete(r *pipeline.Report) {
	h.logger.Info("run complete",
		slog.String("run_id", r.RunID),
		slog.String("target", r.Target),
		slog.String("output_dir", r.OutputDir),
		slog.Int("candidates", r.Candidates),
		slog.Int("takeovers", len(r.Takeovers)),
		slog.Int("bypasses", len(r.Bypasses)),
		slog.Int64("duration_ms", r.DurationMS),
	)
}
