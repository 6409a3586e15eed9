package hooks

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/waftester/vulnscan/pkg/pipeline"
)

// fetchMetrics scrapes the hook's endpoint and returns the body.
func fetchMetrics(t *testing.T, hook *PrometheusHook) string {
	t.Helper()
	resp, err := http.Get(hook.MetricsAddr())
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	return string(body)
}

func newTestPrometheusHook(t *testing.T) *PrometheusHook {
	t.Helper()
	hook, err := NewPrometheusHook(PrometheusOptions{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	t.Cleanup(func() { hook.Close() })
	return hook
}

func TestPrometheusHook_DefaultOptions(t *testing.T) {
	hook := newTestPrometheusHook(t)

	if hook.opts.Path != "/metrics" {
		t.Errorf("expected default path '/metrics', got %q", hook.opts.Path)
	}
	if !strings.HasPrefix(hook.MetricsAddr(), "http://127.0.0.1:") {
		t.Errorf("unexpected metrics address %q", hook.MetricsAddr())
	}
	if !strings.HasSuffix(hook.MetricsAddr(), "/metrics") {
		t.Errorf("metrics address %q lacks path", hook.MetricsAddr())
	}
}

func TestPrometheusHook_RecordsRun(t *testing.T) {
	hook := newTestPrometheusHook(t)
	replayRun(hook)

	body := fetchMetrics(t, hook)
	want := []string{
		`vulnscan_probes_total{bucket="Found"} 4`,
		`vulnscan_probes_total{bucket="Other"} 1`,
		`vulnscan_findings_total{kind="takeover-suspected",severity="high",target="example.com"} 1`,
		`vulnscan_findings_total{kind="forbidden-bypass",severity="medium",target="example.com"} 1`,
		`vulnscan_candidates{target="example.com"} 5`,
		`vulnscan_run_duration_seconds{target="example.com"} 1.5`,
		`vulnscan_runs_total{state="done"} 1`,
		`vulnscan_stage_transitions_total{state="analyzing"} 1`,
		`vulnscan_probe_latency_seconds_count{bucket="Found"} 4`,
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("metrics missing %q", w)
		}
	}
	for _, host := range []string{"b.example.com", "c.example.com"} {
		if strings.Contains(body, `target="`+host+`"`) {
			t.Errorf("findings labelled by subdomain %q", host)
		}
	}
}

func TestPrometheusHook_FailedRunCounted(t *testing.T) {
	hook := newTestPrometheusHook(t)
	hook.OnStage(stageEvent(pipeline.Discovering, 0))
	hook.OnStage(stageEvent(pipeline.Failed, 0))

	body := fetchMetrics(t, hook)
	if !strings.Contains(body, `vulnscan_runs_total{state="failed"} 1`) {
		t.Errorf("failed run not counted:\n%s", body)
	}
}

func TestPrometheusHook_CloseIdempotent(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	if err := hook.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := hook.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Events after close are ignored rather than panicking.
	replayRun(hook)
}

func TestPrometheusHook_BindError(t *testing.T) {
	hook := newTestPrometheusHook(t)
	addr := strings.TrimSuffix(strings.TrimPrefix(hook.MetricsAddr(), "http://"), "/metrics")

	if _, err := NewPrometheusHook(PrometheusOptions{Addr: addr}); err == nil {
		t.Fatal("expected error binding an address in use")
	}
}
