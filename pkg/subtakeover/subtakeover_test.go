package subtakeover

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/probe"
)

// stubFetcher serves canned responses per host. Hosts without an entry are
// unreachable.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  map[string]int
}

func (s *stubFetcher) Fetch(ctx context.Context, host string) (probe.Result, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[host]++
	body, ok := s.bodies[host]
	if !ok {
		return probe.Result{Host: host, Outcome: probe.Unreachable}, nil
	}
	return probe.Result{Host: host, Outcome: probe.Status(http.StatusNotFound)}, []byte(body)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDefaultSignatures(t *testing.T) {
	sigs := DefaultSignatures()
	require.Len(t, sigs, 2)
	assert.Equal(t, "NoSuchBucket", sigs[0].Pattern)
	assert.Equal(t, "There isn't a GitHub Pages site here", sigs[1].Pattern)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		reach    bool
		want     bool
		provider string
	}{
		{name: "s3 bucket", body: "NoSuchBucket", reach: true, want: true, provider: "AWS S3"},
		{name: "s3 xml", body: "<Error><Code>NoSuchBucket</Code></Error>", reach: true, want: true, provider: "AWS S3"},
		{name: "github pages", body: "<h1>There isn't a GitHub Pages site here.</h1>", reach: true, want: true, provider: "GitHub Pages"},
		{name: "case sensitive", body: "nosuchbucket", reach: true, want: false},
		{name: "plain 404", body: "Not Found", reach: true, want: false},
		{name: "unreachable", reach: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{bodies: map[string]string{}}
			if tt.reach {
				f.bodies["x.example.com"] = tt.body
			}
			c := NewChecker(f, nil, quiet())

			got := c.Check(context.Background(), "x.example.com")
			if !tt.want {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, finding.KindTakeover, got.Kind)
			assert.Equal(t, "x.example.com", got.Host)
			assert.Equal(t, tt.provider, got.Provider)
			assert.Equal(t, finding.High, got.Severity)
		})
	}
}

func TestCheck_CustomSignature(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"h.example.com": "No such app"}}
	c := NewChecker(f, append(DefaultSignatures(), CustomSignature("No such app"), CustomSignature("")), quiet())

	assert.Len(t, c.Signatures(), 3)
	got := c.Check(context.Background(), "h.example.com")
	require.NotNil(t, got)
	assert.Equal(t, "No such app", got.Evidence)
}

func TestCheckAll(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"z.example.com": "NoSuchBucket",
		"a.example.com": "There isn't a GitHub Pages site here",
		"b.example.com": "nothing to see",
	}}
	c := NewChecker(f, nil, quiet())

	got := c.CheckAll(context.Background(), []string{"z.example.com", "b.example.com", "down.example.com", "a.example.com"}, 2)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"a.example.com", "z.example.com"}, finding.Hosts(got, finding.KindTakeover))
	for _, host := range []string{"z.example.com", "b.example.com", "down.example.com", "a.example.com"} {
		assert.Equal(t, 1, f.calls[host], "exactly one request for %s", host)
	}
}

func TestCheckAll_Empty(t *testing.T) {
	c := NewChecker(&stubFetcher{}, nil, quiet())
	got := c.CheckAll(context.Background(), nil, 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCheck_WithProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "NoSuchBucket")
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := NewChecker(probe.New(probe.Config{Logger: quiet()}), nil, quiet())
	got := c.Check(context.Background(), u.Host)

	require.NotNil(t, got)
	assert.Equal(t, u.Host, got.Host)
}
