// Package probe sends single HTTP requests to candidate hosts.
//
// A probe follows redirects up to defaults.MaxRedirects hops and reports
// the final status. It never returns an error: every transport failure
// (timeout, refused connection, DNS failure, TLS or protocol error, an
// overlong redirect chain) becomes Unreachable. There are no retries.
package probe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/httpclient"
	"github.com/waftester/vulnscan/pkg/iohelper"
)

// Config configures a Prober.
type Config struct {
	// Scheme is "http" (default) or "https".
	Scheme string

	// Timeout bounds each request (default duration.HTTPProbing).
	Timeout time.Duration

	// InsecureSkipVerify disables certificate checks on https probes.
	InsecureSkipVerify bool

	// Proxy routes probes through an http or socks5 proxy.
	Proxy string

	// UserAgent overrides the default vuln-scan user agent.
	UserAgent string

	// Logger receives debug lines for unreachable hosts.
	Logger *slog.Logger
}

// Prober issues probes with a shared, redirect-following client.
type Prober struct {
	client    *http.Client
	scheme    string
	userAgent string
	logger    *slog.Logger
}

// New builds a Prober from cfg.
func New(cfg Config) *Prober {
	if cfg.Scheme == "" {
		cfg.Scheme = defaults.SchemeHTTP
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.HTTPProbing
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc := httpclient.WithTimeout(cfg.Timeout)
	hc.InsecureSkipVerify = cfg.InsecureSkipVerify
	hc.Proxy = cfg.Proxy
	hc.MaxRedirects = defaults.MaxRedirects

	return &Prober{
		client:    httpclient.New(hc),
		scheme:    cfg.Scheme,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}
}

// URL returns the address probed for host.
func (p *Prober) URL(host string) string {
	return p.scheme + "://" + host + "/"
}

// Probe sends one request with method to host and discards the body.
func (p *Prober) Probe(ctx context.Context, host, method string) Result {
	res, _ := p.do(ctx, host, method, 0)
	return res
}

// Fetch sends one GET to host and returns up to iohelper.ProbeMaxBodySize
// bytes of the body. The body is nil when the host is unreachable.
func (p *Prober) Fetch(ctx context.Context, host string) (Result, []byte) {
	return p.do(ctx, host, http.MethodGet, iohelper.ProbeMaxBodySize)
}

func (p *Prober) do(ctx context.Context, host, method string, maxBody int64) (Result, []byte) {
	res := Result{Host: host, Method: method, Outcome: Unreachable}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, p.URL(host), nil)
	if err != nil {
		res.Err = err
		p.logUnreachable(res)
		return res, nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = httpclient.Classify(err)
		p.logUnreachable(res)
		return res, nil
	}
	defer iohelper.DrainAndClose(resp.Body)

	res.Outcome = Status(resp.StatusCode)
	if maxBody <= 0 {
		return res, nil
	}
	return res, iohelper.ReadBodyOrLog(resp.Body, maxBody, p.logger)
}

func (p *Prober) logUnreachable(res Result) {
	p.logger.Debug("host unreachable",
		slog.String("host", res.Host),
		slog.String("method", res.Method),
		slog.Any("error", res.Err),
	)
}
