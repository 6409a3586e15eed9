// Package httpclient provides the shared HTTP client factory used by the
// prober and the candidate sources. A client returns the first response
// as is unless Config.MaxRedirects asks it to follow redirects.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/waftester/vulnscan/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.HTTPProbing)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 10)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool
	IdleConnTimeout time.Duration

	// DisableKeepAlives disables HTTP keep-alives if true
	DisableKeepAlives bool

	// DialTimeout is the timeout for establishing connections
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake
	TLSHandshakeTimeout time.Duration

	// MaxRedirects is how many redirects are followed before the request
	// fails with ErrTooManyRedirects. Zero returns the first response.
	MaxRedirects int
}

// DefaultConfig returns defaults tuned for probing many distinct hosts once each.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.HTTPProbing,
		InsecureSkipVerify:  false,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     duration.IdleConnTimeout,
		DialTimeout:         duration.DialTimeout,
		TLSHandshakeTimeout: duration.TLSHandshake,
	}
}

// New creates a new HTTP client with the given configuration.
// Zero values fall back to DefaultConfig. A malformed proxy URL is ignored;
// callers that need to reject one should run ValidateProxyURL first.
func New(cfg Config) *http.Client {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,

		DialContext: dialer.DialContext,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via --skip-verify
		},
	}

	if pc, err := ParseProxyURL(cfg.Proxy); err == nil && pc != nil {
		applyProxy(transport, pc, cfg.DialTimeout)
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy(cfg.MaxRedirects),
	}
}

func redirectPolicy(limit int) func(*http.Request, []*http.Request) error {
	if limit <= 0 {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > limit {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, limit)
		}
		return nil
	}
}

// WithTimeout returns DefaultConfig with the specified timeout.
func WithTimeout(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	return cfg
}

// WithProxy returns DefaultConfig with the specified proxy.
func WithProxy(proxyURL string) Config {
	cfg := DefaultConfig()
	cfg.Proxy = proxyURL
	return cfg
}
