// Package sources discovers candidate hostnames for a target domain.
//
// A Manager fans out to every registered Source and merges their answers
// into one normalized set. Source failures are logged and contribute no
// names; Discover itself never fails.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/hostname"
	"github.com/waftester/vulnscan/pkg/runner"
)

// Source returns candidate hostnames for a domain.
type Source interface {
	Name() string
	Discover(ctx context.Context, domain string) ([]string, error)
}

// Options configures the sources built by Build.
type Options struct {
	Timeout   time.Duration
	Proxy     string
	UserAgent string
	Wordlist  string
}

// Build constructs the named sources. A configured wordlist implies the
// file source even when it is not named.
func Build(names []string, opts Options) ([]Source, error) {
	if len(names) == 0 {
		names = defaults.Sources()
	}
	if opts.Wordlist != "" && !slices.Contains(names, defaults.SourceFile) {
		names = append(slices.Clone(names), defaults.SourceFile)
	}

	var out []Source
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true

		switch n {
		case defaults.SourceCrtsh:
			out = append(out, NewCrtshSource(opts))
		case defaults.SourceHackerTarget:
			out = append(out, NewHackerTargetSource(opts))
		case defaults.SourceFile:
			if opts.Wordlist == "" {
				return nil, ErrMissingWordlist
			}
			out = append(out, NewFileSource(opts.Wordlist))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, n)
		}
	}
	return out, nil
}

// Manager queries sources concurrently and merges their results.
type Manager struct {
	sources []Source
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewManager returns a Manager over srcs. Upstream calls are paced to
// defaults.SourceRequestsPerMinute.
func NewManager(logger *slog.Logger, srcs ...Source) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	every := time.Minute / defaults.SourceRequestsPerMinute
	return &Manager{
		sources: srcs,
		limiter: rate.NewLimiter(rate.Every(every), defaults.ConcurrencySources),
		timeout: duration.SourceQuery,
		logger:  logger,
	}
}

// SetLimiter replaces the pacing limiter.
func (m *Manager) SetLimiter(l *rate.Limiter) { m.limiter = l }

// Names returns the registered source names in registration order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return names
}

type sourceAnswer struct {
	name  string
	hosts []string
	err   error
}

// Discover returns the normalized, in-scope, deduplicated union of every
// source's answer. An invalid domain or a total failure yields an empty set.
func (m *Manager) Discover(ctx context.Context, domain string) *hostname.Set {
	set := &hostname.Set{}
	target, ok := hostname.Normalize(domain)
	if !ok {
		m.logger.Warn("invalid discovery domain", slog.String("domain", domain))
		return set
	}

	tasks := make([]runner.Task[sourceAnswer], len(m.sources))
	for i, src := range m.sources {
		tasks[i] = func(ctx context.Context) sourceAnswer {
			return m.query(ctx, src, target)
		}
	}

	for _, a := range runner.RunAll(ctx, tasks, defaults.ConcurrencySources) {
		if a.err != nil {
			m.logger.Warn("candidate source failed",
				slog.String("source", a.name),
				slog.String("error", a.err.Error()),
			)
			continue
		}
		added := 0
		for _, raw := range a.hosts {
			h, ok := hostname.Normalize(raw)
			if !ok || !hostname.InScope(h, target) {
				continue
			}
			if set.Add(h) {
				added++
			}
		}
		m.logger.Debug("candidate source done",
			slog.String("source", a.name),
			slog.Int("returned", len(a.hosts)),
			slog.Int("new", added),
		)
	}
	return set
}

func (m *Manager) query(ctx context.Context, src Source, domain string) sourceAnswer {
	a := sourceAnswer{name: src.Name()}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			a.err = err
			return a
		}
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	a.hosts, a.err = src.Discover(ctx, domain)
	return a
}
