// Package subtakeover detects hosts that still point at an unclaimed
// hosting resource. A host is suspected when the body of a single GET
// contains one of the configured signatures.
package subtakeover

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/runner"
)

// Signature is a body substring left behind by a provider when the resource
// a hostname points at has not been claimed. Matching is case-sensitive.
type Signature struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Pattern  string `json:"pattern" yaml:"pattern"`
}

// DefaultSignatures returns the built-in signature set.
func DefaultSignatures() []Signature {
	return []Signature{
		{Name: "s3-no-such-bucket", Provider: "AWS S3", Pattern: "NoSuchBucket"},
		{Name: "github-pages-missing", Provider: "GitHub Pages", Pattern: "There isn't a GitHub Pages site here"},
	}
}

// CustomSignature wraps a user-supplied pattern.
func CustomSignature(pattern string) Signature {
	return Signature{Name: "custom", Provider: "custom", Pattern: pattern}
}

// Fetcher retrieves a host's body with a single GET.
type Fetcher interface {
	Fetch(ctx context.Context, host string) (probe.Result, []byte)
}

// Checker runs the takeover check.
type Checker struct {
	fetcher    Fetcher
	signatures []Signature
	logger     *slog.Logger
}

// NewChecker returns a Checker. A nil or empty signature list selects
// DefaultSignatures; signatures with an empty pattern are dropped.
func NewChecker(f Fetcher, signatures []Signature, logger *slog.Logger) *Checker {
	if len(signatures) == 0 {
		signatures = DefaultSignatures()
	}
	kept := make([]Signature, 0, len(signatures))
	for _, s := range signatures {
		if s.Pattern != "" {
			kept = append(kept, s)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{fetcher: f, signatures: kept, logger: logger}
}

// Signatures returns the active signatures.
func (c *Checker) Signatures() []Signature {
	return append([]Signature(nil), c.signatures...)
}

// Match returns the first signature found in body.
func (c *Checker) Match(body []byte) (Signature, bool) {
	for _, s := range c.signatures {
		if bytes.Contains(body, []byte(s.Pattern)) {
			return s, true
		}
	}
	return Signature{}, false
}

// Check fetches host once. It returns nil when the host is unreachable or
// no signature matches.
func (c *Checker) Check(ctx context.Context, host string) *finding.Finding {
	res, body := c.fetcher.Fetch(ctx, host)
	if res.Outcome.IsUnreachable() {
		return nil
	}
	sig, ok := c.Match(body)
	if !ok {
		return nil
	}
	c.logger.Debug("takeover signature matched",
		slog.String("host", host),
		slog.String("provider", sig.Provider),
	)
	return &finding.Finding{
		Host:     host,
		Kind:     finding.KindTakeover,
		Evidence: sig.Pattern,
		Provider: sig.Provider,
		Severity: finding.High,
	}
}

// CheckAll checks every host with at most concurrency requests in flight
// and returns the findings sorted by host.
func (c *Checker) CheckAll(ctx context.Context, hosts []string, concurrency int) []finding.Finding {
	tasks := make([]runner.Task[*finding.Finding], len(hosts))
	for i, h := range hosts {
		tasks[i] = func(ctx context.Context) *finding.Finding {
			return c.Check(ctx, h)
		}
	}

	out := []finding.Finding{}
	for _, f := range runner.RunAll(ctx, tasks, concurrency) {
		if f != nil {
			out = append(out, *f)
		}
	}
	finding.Sort(out)
	return out
}
