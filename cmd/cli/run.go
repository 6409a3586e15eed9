package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/waftester/vulnscan/pkg/config"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/hooks"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/sources"
	"github.com/waftester/vulnscan/pkg/ui"
)

// newLogger returns the process logger. Verbose lowers the level to Debug;
// silent raises it to Error.
func newLogger(o config.Options, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case o.Verbose:
		level = slog.LevelDebug
	case o.Silent:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// run wires sources, prober, hooks and pipeline for one target.
func run(ctx context.Context, target string, o config.Options, stdout io.Writer) error {
	ui.SetNoColor(o.NoColor)
	ui.SetSilent(o.Silent)

	logger := newLogger(o, ui.Writer())
	slog.SetDefault(logger)

	ui.PrintBanner()
	printConfig(target, o)

	srcs, err := sources.Build(o.Sources, sources.Options{
		Timeout:   duration.HTTPAPI,
		Proxy:     o.Proxy,
		UserAgent: o.UserAgent,
		Wordlist:  o.Wordlist,
	})
	if err != nil {
		return withCode(defaults.ExitUserError, err)
	}
	mgr := sources.NewManager(logger, srcs...)
	mgr.SetLimiter(rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.SourceRateLimit)), defaults.ConcurrencySources))

	prober := probe.New(probe.Config{
		Scheme:             o.Scheme(),
		Timeout:            o.Timeout,
		InsecureSkipVerify: o.SkipVerify,
		Proxy:              o.Proxy,
		UserAgent:          o.UserAgent,
		Logger:             logger,
	})

	console := hooks.NewConsoleHook(ui.IsTerminal(os.Stderr))
	console.Results = stdout
	observers := []pipeline.Observer{console, hooks.NewLoggerHook(logger)}

	if o.MetricsAddr != "" {
		ph, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{Addr: o.MetricsAddr, Logger: logger})
		if err != nil {
			return withCode(defaults.ExitUserError, fmt.Errorf("metrics: %w", err))
		}
		defer ph.Close()
		ui.PrintInfo("Serving metrics at " + ph.MetricsAddr())
		observers = append(observers, ph)
	}
	if o.OTelEndpoint != "" {
		oh, err := hooks.NewOTelHook(hooks.OTelOptions{Endpoint: o.OTelEndpoint, Insecure: o.OTelInsecure})
		if err != nil {
			return withCode(defaults.ExitUserError, fmt.Errorf("otel: %w", err))
		}
		defer func() {
			if err := oh.Close(); err != nil {
				logger.Warn("otel shutdown", slog.String("error", err.Error()))
			}
		}()
		observers = append(observers, oh)
	}

	p := pipeline.New(pipeline.Config{
		Concurrency: o.Concurrency,
		OutputRoot:  o.OutputDir,
		Signatures:  o.TakeoverSignatures(),
		Methods:     o.Methods,
		Logger:      logger,
	}, mgr, prober, observers...)

	if _, err := p.Run(ctx, target); err != nil {
		return err
	}
	return nil
}

// printConfig prints the resolved options, ffuf style.
func printConfig(target string, o config.Options) {
	proxy := o.Proxy
	if proxy == "" {
		proxy = "none"
	}
	ui.PrintConfigBanner(
		[]string{"Target", "Sources", "Scheme", "Threads", "Timeout", "Methods", "Signatures", "Proxy", "Output"},
		map[string]string{
			"Target":     target,
			"Sources":    strings.Join(o.Sources, ","),
			"Scheme":     o.Scheme(),
			"Threads":    strconv.Itoa(o.Concurrency),
			"Timeout":    o.Timeout.String(),
			"Methods":    strings.Join(o.Methods, ","),
			"Signatures": strconv.Itoa(len(o.TakeoverSignatures())),
			"Proxy":      proxy,
			"Output":     o.OutputDir,
		},
	)
}
