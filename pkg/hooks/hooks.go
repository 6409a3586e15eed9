// Package hooks provides pipeline observers that export run telemetry:
// Prometheus metrics, OpenTelemetry traces, structured logs and console
// output.
package hooks

import (
	"log/slog"

	"github.com/waftester/vulnscan/pkg/pipeline"
)

// Compile-time interface checks.
var (
	_ pipeline.Observer = (*PrometheusHook)(nil)
	_ pipeline.Observer = (*OTelHook)(nil)
	_ pipeline.Observer = (*LoggerHook)(nil)
	_ pipeline.Observer = (*ConsoleHook)(nil)
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
