// Package duration provides canonical time constants for vuln-scan.
// This is the SINGLE SOURCE OF TRUTH for time-based configuration.
//
// Usage:
//
//	client := httpclient.New(httpclient.WithTimeout(duration.HTTPProbing))
//	ctx, cancel := context.WithTimeout(ctx, duration.SourceQuery)
//
// DO NOT use hardcoded time.Duration values like `5 * time.Second` elsewhere.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPProbing is the per-request timeout for every probe (5s)
	HTTPProbing = 5 * time.Second

	// HTTPAPI is for upstream candidate-source API calls (60s)
	HTTPAPI = 60 * time.Second
)

// ============================================================================
// CONTEXT/OPERATION TIMEOUTS
// ============================================================================

const (
	// SourceQuery bounds a single candidate-source query (2min)
	SourceQuery = 2 * time.Minute

	// Shutdown bounds hook and metrics-server shutdown (5s)
	Shutdown = 5 * time.Second

	// HookConnect bounds telemetry exporter connection setup (10s)
	HookConnect = 10 * time.Second

	// GracePeriod is how long a second interrupt is awaited before a hard exit (5s)
	GracePeriod = 5 * time.Second
)

// ============================================================================
// NETWORK/TRANSPORT
// ============================================================================

const (
	// DialTimeout is for establishing TCP connections (5s)
	DialTimeout = 5 * time.Second

	// KeepAlive is for TCP keep-alive interval (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is for idle connection pool timeout (90s)
	IdleConnTimeout = 90 * time.Second

	// TLSHandshake is for TLS handshake timeout (5s)
	TLSHandshake = 5 * time.Second
)
