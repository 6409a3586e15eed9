// Package config holds the runtime options of vuln-scan. Values start from
// pkg/defaults, are overlaid by an optional YAML file, and are finally
// overridden by command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/vulnscan/pkg/bypass"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/httpclient"
	"github.com/waftester/vulnscan/pkg/subtakeover"
)

// Options holds all CLI configuration options
type Options struct {
	// Execution settings
	Concurrency int           `yaml:"concurrency"` // Workers per probing round (default: 10)
	Timeout     time.Duration `yaml:"timeout"`     // Per-request timeout (default: 5s)

	// HTTP settings
	HTTPS      bool   `yaml:"https"`       // Probe over https instead of http
	SkipVerify bool   `yaml:"skip_verify"` // Skip TLS verification
	Proxy      string `yaml:"proxy"`       // http, https, socks5 or socks5h proxy URL
	UserAgent  string `yaml:"user_agent"`  // Empty = tool default

	// Discovery settings
	Sources         []string `yaml:"sources"`           // crtsh, hackertarget, file
	Wordlist        string   `yaml:"wordlist"`          // Hostname list for the file source
	SourceRateLimit int      `yaml:"source_rate_limit"` // Upstream requests per minute

	// Analysis settings
	Signatures []string `yaml:"signatures"` // Extra takeover body patterns
	Methods    []string `yaml:"methods"`    // Bypass method order

	// Output settings
	OutputDir string `yaml:"output_dir"` // Parent of the per-target directory
	Verbose   bool   `yaml:"verbose"`
	Silent    bool   `yaml:"silent"`
	NoColor   bool   `yaml:"no_color"`

	// Observability
	MetricsAddr  string `yaml:"metrics_addr"`  // Prometheus listen address; empty = disabled
	OTelEndpoint string `yaml:"otel_endpoint"` // OTLP/gRPC collector; empty = disabled
	OTelInsecure bool   `yaml:"otel_insecure"`
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		Concurrency:     defaults.Concurrency,
		Timeout:         duration.HTTPProbing,
		Sources:         defaults.Sources(),
		SourceRateLimit: defaults.SourceRequestsPerMinute,
		Methods:         bypass.DefaultMethods(),
		OutputDir:       defaults.OutputRoot,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults.
func Decode(r io.Reader) (Options, error) {
	opts := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return opts, nil
}

var knownSources = []string{defaults.SourceCrtsh, defaults.SourceHackerTarget, defaults.SourceFile}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.Concurrency < 1 || o.Concurrency > defaults.ConcurrencyMax {
		return fmt.Errorf("%w: concurrency must be between 1 and %d, got %d",
			ErrInvalidConfig, defaults.ConcurrencyMax, o.Concurrency)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, o.Timeout)
	}
	if o.SourceRateLimit < 1 {
		return fmt.Errorf("%w: source rate limit must be positive, got %d", ErrInvalidConfig, o.SourceRateLimit)
	}
	if o.Verbose && o.Silent {
		return fmt.Errorf("%w: verbose and silent are mutually exclusive", ErrInvalidConfig)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("%w: output directory", ErrMissingRequired)
	}
	if err := httpclient.ValidateProxyURL(o.Proxy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, s := range o.Sources {
		if !slices.Contains(knownSources, s) {
			return fmt.Errorf("%w: unknown source %q (known: %s)",
				ErrInvalidConfig, s, strings.Join(knownSources, ", "))
		}
	}
	if slices.Contains(o.Sources, defaults.SourceFile) && o.Wordlist == "" {
		return fmt.Errorf("%w: wordlist for the file source", ErrMissingRequired)
	}
	for _, sig := range o.Signatures {
		if strings.TrimSpace(sig) == "" {
			return fmt.Errorf("%w: empty takeover signature", ErrInvalidConfig)
		}
	}
	if len(o.Methods) == 0 {
		return fmt.Errorf("%w: bypass methods", ErrMissingRequired)
	}
	for _, m := range o.Methods {
		if m == "" || strings.ContainsAny(m, " \t/") {
			return fmt.Errorf("%w: invalid HTTP method %q", ErrInvalidConfig, m)
		}
	}
	return nil
}

// Scheme returns the probe scheme.
func (o *Options) Scheme() string {
	if o.HTTPS {
		return defaults.SchemeHTTPS
	}
	return defaults.SchemeHTTP
}

// TakeoverSignatures returns the default signatures followed by any
// configured extras.
func (o *Options) TakeoverSignatures() []subtakeover.Signature {
	sigs := subtakeover.DefaultSignatures()
	for _, p := range o.Signatures {
		sigs = append(sigs, subtakeover.CustomSignature(p))
	}
	return sigs
}
