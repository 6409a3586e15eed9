package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/hostname"
	"github.com/waftester/vulnscan/pkg/jsonutil"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/store"
)

type staticDiscoverer []string

func (s staticDiscoverer) Discover(ctx context.Context, domain string) *hostname.Set {
	return hostname.NewSet(s...)
}

// fakeHost describes how a host answers. A host missing from the table is
// unreachable.
type fakeHost struct {
	status map[string]int
	body   string
}

type fakeProber struct {
	mu    sync.Mutex
	hosts map[string]fakeHost
	calls int
}

func (f *fakeProber) Probe(ctx context.Context, host, method string) probe.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	h, ok := f.hosts[host]
	if !ok {
		return probe.Result{Host: host, Method: method, Outcome: probe.Unreachable}
	}
	code, ok := h.status[method]
	if !ok {
		code = h.status[http.MethodGet]
	}
	return probe.Result{Host: host, Method: method, Outcome: probe.Status(code)}
}

func (f *fakeProber) Fetch(ctx context.Context, host string) (probe.Result, []byte) {
	res := f.Probe(ctx, host, http.MethodGet)
	if res.Outcome.IsUnreachable() {
		return res, nil
	}
	return res, []byte(f.hosts[host].body)
}

type recorder struct {
	NopObserver
	mu         sync.Mutex
	stages     []State
	probes     int
	classified int
	findings   []finding.Finding
	completed  *Report
}

func (r *recorder) OnStage(ev StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, ev.State)
}

func (r *recorder) OnProbe(probe.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes++
}

func (r *recorder) OnClassified(classify.Buckets) { r.classified++ }

func (r *recorder) OnFinding(f finding.Finding) { r.findings = append(r.findings, f) }

func (r *recorder) OnComplete(rep *Report) { r.completed = rep }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newTestPipeline(t *testing.T, candidates []string, hosts map[string]fakeHost, obs ...Observer) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	p := New(Config{Concurrency: 3, OutputRoot: root, Logger: quiet()},
		staticDiscoverer(candidates), &fakeProber{hosts: hosts}, obs...)
	return p, root
}

func get(code int) map[string]int { return map[string]int{http.MethodGet: code} }

func TestRun_ClassifiesAndPersists(t *testing.T) {
	rec := &recorder{}
	p, root := newTestPipeline(t,
		[]string{"a.example.com", "b.example.com"},
		map[string]fakeHost{
			"a.example.com": {status: get(200)},
			"b.example.com": {status: get(404), body: "Not Found"},
		},
		rec,
	)
	assert.Equal(t, Idle, p.State())

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, Done, p.State())
	assert.Equal(t, []string{"a.example.com"}, rep.Found)
	assert.Equal(t, []string{"b.example.com"}, rep.NotFound)
	assert.Empty(t, rep.Forbidden)
	assert.Empty(t, rep.Findings())

	dir := filepath.Join(root, "example.com")
	assert.Equal(t, "a.example.com\n", readFile(t, filepath.Join(dir, "200.txt")))
	assert.Equal(t, "b.example.com\n", readFile(t, filepath.Join(dir, "404.txt")))
	assert.Equal(t, "", readFile(t, filepath.Join(dir, "403.txt")))
	assert.Equal(t, "", readFile(t, filepath.Join(dir, store.TakeoverFile)))
	assert.Equal(t, "", readFile(t, filepath.Join(dir, store.BypassFile)))

	assert.Equal(t, []State{Discovering, Probing, PersistingBuckets, Analyzing, PersistingFindings, Done}, rec.stages)
	assert.Equal(t, 2, rec.probes)
	assert.Equal(t, 1, rec.classified)
	assert.Same(t, rep, rec.completed)
}

func TestRun_TakeoverFinding(t *testing.T) {
	p, root := newTestPipeline(t,
		[]string{"x.example.com"},
		map[string]fakeHost{"x.example.com": {status: get(404), body: "NoSuchBucket"}},
	)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	require.Len(t, rep.Takeovers, 1)
	assert.Equal(t, "x.example.com", rep.Takeovers[0].Host)
	assert.Equal(t, finding.KindTakeover, rep.Takeovers[0].Kind)
	assert.Equal(t, "x.example.com\n", readFile(t, filepath.Join(root, "example.com", store.TakeoverFile)))
}

// redirectingHosts acts as an HTTP proxy for every candidate, so a real
// Prober can be pointed at it with Config.Proxy.
func redirectingHosts(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			http.Redirect(w, r, "/landing", http.StatusMovedPermanently)
		case r.Host == "bucket.example.com":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "<Error><Code>NoSuchBucket</Code></Error>")
		case r.Host == "admin.example.com" && r.Method != http.MethodGet:
			w.WriteHeader(http.StatusOK)
		case r.Host == "admin.example.com":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_ClassifiesByFinalResponseAfterRedirect(t *testing.T) {
	srv := redirectingHosts(t)
	root := t.TempDir()
	prober := probe.New(probe.Config{Proxy: srv.URL, Logger: quiet()})
	p := New(Config{Concurrency: 3, OutputRoot: root, Logger: quiet()},
		staticDiscoverer{"www.example.com", "bucket.example.com", "admin.example.com"}, prober)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"www.example.com"}, rep.Found)
	assert.Equal(t, []string{"bucket.example.com"}, rep.NotFound)
	assert.Equal(t, []string{"admin.example.com"}, rep.Forbidden)
	assert.Empty(t, rep.Other)

	require.Len(t, rep.Takeovers, 1)
	assert.Equal(t, "bucket.example.com", rep.Takeovers[0].Host)
	assert.Equal(t, "bucket.example.com\n", readFile(t, filepath.Join(root, "example.com", store.TakeoverFile)))

	require.Len(t, rep.Bypasses, 1)
	assert.Equal(t, "admin.example.com", rep.Bypasses[0].Host)
	assert.Equal(t, http.MethodHead, rep.Bypasses[0].Method)
}

func TestRun_BypassFinding(t *testing.T) {
	rec := &recorder{}
	p, root := newTestPipeline(t,
		[]string{"y.example.com", "z.example.com"},
		map[string]fakeHost{
			"y.example.com": {status: map[string]int{"GET": 403, "HEAD": 403, "OPTIONS": 200}},
			"z.example.com": {status: get(403)},
		},
		rec,
	)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	require.Len(t, rep.Bypasses, 1)
	assert.Equal(t, "y.example.com", rep.Bypasses[0].Host)
	assert.Equal(t, "OPTIONS", rep.Bypasses[0].Method)
	assert.Equal(t, "y.example.com\n", readFile(t, filepath.Join(root, "example.com", store.BypassFile)))
	assert.Len(t, rec.findings, 1)
}

func TestRun_OtherBucketNotPersisted(t *testing.T) {
	p, root := newTestPipeline(t,
		[]string{"r.example.com", "down.example.com", "ok.example.com"},
		map[string]fakeHost{
			"r.example.com":  {status: get(302)},
			"ok.example.com": {status: get(200)},
		},
	)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	require.Len(t, rep.Other, 2)
	assert.Equal(t, "down.example.com", rep.Other[0].Host)
	assert.Equal(t, "unreachable", rep.Other[0].Status)
	assert.Equal(t, "r.example.com", rep.Other[1].Host)
	assert.Equal(t, "302", rep.Other[1].Status)

	dir := filepath.Join(root, "example.com")
	for _, name := range []string{"200.txt", "403.txt", "404.txt"} {
		content := readFile(t, filepath.Join(dir, name))
		assert.NotContains(t, content, "r.example.com")
		assert.NotContains(t, content, "down.example.com")
	}
}

func TestRun_EmptyCandidates(t *testing.T) {
	p, root := newTestPipeline(t, nil, nil)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Candidates)
	assert.Empty(t, rep.Found)
	assert.Empty(t, rep.Forbidden)
	assert.Empty(t, rep.NotFound)
	assert.Empty(t, rep.Other)
	assert.Empty(t, rep.Findings())
	assert.Equal(t, Done, p.State())

	dir := filepath.Join(root, "example.com")
	for _, name := range []string{"200.txt", "403.txt", "404.txt", store.TakeoverFile, store.BypassFile} {
		assert.Equal(t, "", readFile(t, filepath.Join(dir, name)), name)
	}
}

func TestRun_WritesSummary(t *testing.T) {
	p, root := newTestPipeline(t,
		[]string{"y.example.com"},
		map[string]fakeHost{"y.example.com": {status: map[string]int{"GET": 403, "PUT": 200}}},
	)

	rep, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	var got struct {
		RunID    string `json:"run_id"`
		State    string `json:"state"`
		Bypasses []struct {
			Host   string `json:"host"`
			Method string `json:"method"`
		} `json:"bypasses"`
	}
	data := readFile(t, filepath.Join(root, "example.com", store.SummaryFile))
	require.NoError(t, jsonutil.Unmarshal([]byte(data), &got))

	assert.Equal(t, rep.RunID, got.RunID)
	assert.Equal(t, "done", got.State)
	require.Len(t, got.Bypasses, 1)
	assert.Equal(t, "PUT", got.Bypasses[0].Method)
}

func TestRun_FilesystemErrorIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "example.com"), []byte("not a dir"), 0o644))

	rec := &recorder{}
	p := New(Config{OutputRoot: root, Logger: quiet()},
		staticDiscoverer{"a.example.com"},
		&fakeProber{hosts: map[string]fakeHost{"a.example.com": {status: get(200)}}},
		rec,
	)

	rep, err := p.Run(context.Background(), "example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCreateDir)
	assert.Equal(t, Failed, p.State())
	require.NotNil(t, rep)
	assert.Equal(t, []string{"a.example.com"}, rep.Found)
	assert.Equal(t, Failed, rec.stages[len(rec.stages)-1])
	assert.Nil(t, rec.completed)
}

func TestRun_InvalidTarget(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	for _, target := range []string{"", "com", "bad target"} {
		_, err := p.Run(context.Background(), target)
		assert.ErrorIs(t, err, ErrInvalidTarget, target)
	}
	assert.Equal(t, Idle, p.State())
}

func TestRun_OnlyOnce(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	_, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRun_NormalizesTargetDirectory(t *testing.T) {
	p, root := newTestPipeline(t, nil, nil)

	rep, err := p.Run(context.Background(), "Example.COM.")
	require.NoError(t, err)

	assert.Equal(t, "example.com", rep.Target)
	assert.DirExists(t, filepath.Join(root, "example.com"))
}

func TestState(t *testing.T) {
	assert.Equal(t, "persisting-buckets", PersistingBuckets.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, Done.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Analyzing.Terminal())
}
