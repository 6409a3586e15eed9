// Package defaults provides canonical default values for vuln-scan.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.Concurrency
//	req.Header.Set("User-Agent", defaults.UserAgent(""))
//
// DO NOT hardcode values like `Concurrency: 10` in other packages.
// Reference the appropriate constant from this package instead.
package defaults

import "fmt"

// Version is the current vuln-scan version
const Version = "1.2.0"

// ToolName is the binary and telemetry service name
const ToolName = "vuln-scan"

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// Concurrency is the worker count for every probing round (10)
	Concurrency = 10

	// ConcurrencySources bounds parallel candidate-source queries (4)
	ConcurrencySources = 4

	// ConcurrencyMax caps user-supplied concurrency (500)
	ConcurrencyMax = 500
)

// ============================================================================
// PROBING
// ============================================================================

const (
	// SchemeHTTP is the default probe scheme (plaintext)
	SchemeHTTP = "http"

	// SchemeHTTPS enables TLS on the probe transport
	SchemeHTTPS = "https"

	// MaxRedirects is how far a probe follows a redirect chain (30)
	MaxRedirects = 30
)

// ============================================================================
// CANDIDATE SOURCES
// ============================================================================

const (
	// SourceCrtsh is the crt.sh certificate transparency source
	SourceCrtsh = "crtsh"

	// SourceHackerTarget is the hackertarget.com hostsearch source
	SourceHackerTarget = "hackertarget"

	// SourceFile is a local wordlist of hostnames
	SourceFile = "file"

	// SourceRequestsPerMinute paces upstream provider calls (30)
	SourceRequestsPerMinute = 30
)

// Sources returns the sources enabled when none are configured.
func Sources() []string {
	return []string{SourceCrtsh}
}

// ============================================================================
// OUTPUT
// ============================================================================

const (
	// OutputRoot is the parent directory of per-target result directories
	OutputRoot = "."

	// MetricsPath is the Prometheus scrape path
	MetricsPath = "/metrics"

	// OTelEndpoint is the default OTLP/gRPC collector address
	OTelEndpoint = "localhost:4317"
)

// ============================================================================
// USER AGENTS
// ============================================================================

// UAMinimal is the bare tool user agent
const UAMinimal = "vuln-scan/" + Version

// UserAgent returns the vuln-scan user agent with optional context
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("vuln-scan/%s (%s)", Version, context)
}
