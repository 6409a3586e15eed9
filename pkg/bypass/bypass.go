// Package bypass checks whether a host that answers 403 to GET serves
// content when asked with a different HTTP method.
package bypass

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/runner"
)

// DefaultMethods returns the alternate methods in the order they are tried.
func DefaultMethods() []string {
	return []string{http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete}
}

// Prober sends a single request.
type Prober interface {
	Probe(ctx context.Context, host, method string) probe.Result
}

// Checker runs the forbidden-bypass check.
type Checker struct {
	prober  Prober
	methods []string
	logger  *slog.Logger
}

// NewChecker returns a Checker that tries methods in order. An empty list
// selects DefaultMethods.
func NewChecker(p Prober, methods []string, logger *slog.Logger) *Checker {
	if len(methods) == 0 {
		methods = DefaultMethods()
	}
	normalized := make([]string, len(methods))
	for i, m := range methods {
		normalized[i] = strings.ToUpper(m)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{prober: p, methods: normalized, logger: logger}
}

// Methods returns the methods tried, in order.
func (c *Checker) Methods() []string {
	return append([]string(nil), c.methods...)
}

// Check tries each method until one returns 200. Unreachable attempts count
// as "no 200" and the next method is still tried. Returns nil when no
// method succeeds.
func (c *Checker) Check(ctx context.Context, host string) *finding.Finding {
	for _, m := range c.methods {
		res := c.prober.Probe(ctx, host, m)
		if !res.Outcome.Is(http.StatusOK) {
			continue
		}
		c.logger.Debug("forbidden bypass", slog.String("host", host), slog.String("method", m))
		return &finding.Finding{
			Host:     host,
			Kind:     finding.KindForbiddenBypass,
			Method:   m,
			Evidence: m + " returned 200",
			Severity: finding.Medium,
		}
	}
	return nil
}

// CheckAll checks every host with at most concurrency hosts in flight and
// returns the findings sorted by host.
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
