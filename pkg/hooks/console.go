package hooks

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/waftester/vulnscan/pkg/classify"
	"github.com/waftester/vulnscan/pkg/finding"
	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/probe"
	"github.com/waftester/vulnscan/pkg/ui"
)

// ConsoleHook prints operator-facing progress through pkg/ui. Stage
// chatter goes to the ui writer (stderr) and is muted by silent mode;
// findings go to Results (stdout) and are never muted.
type ConsoleHook struct {
	// Results receives one line per finding (default os.Stdout).
	Results io.Writer

	// Progress enables an in-place probe counter. Only meaningful on a TTY.
	Progress bool

	bar    *ui.ProgressBar
	total  atomic.Int64
	done   atomic.Int64
	drawMu sync.Mutex
	drawn  bool
}

// NewConsoleHook returns a console hook writing findings to stdout.
func NewConsoleHook(progress bool) *ConsoleHook {
	return &ConsoleHook{Results: os.Stdout, Progress: progress}
}

func (h *ConsoleHook) out() io.Writer {
	if h.Results != nil {
		return h.Results
	}
	return os.Stdout
}

func (h *ConsoleHook) OnStage(ev pipeline.StageEvent) {
	switch ev.State {
	case pipeline.Discovering:
		ui.PrintInfo(fmt.Sprintf("Gathering subdomains for %s...", ev.Target))
	case pipeline.Probing:
		h.total.Store(int64(ev.Inputs))
		h.done.Store(0)
		ui.PrintSuccess(fmt.Sprintf("Found %d subdomains.", ev.Inputs))
		ui.PrintInfo("Checking status codes of subdomains...")
	case pipeline.Analyzing:
		ui.PrintInfo("Analyzing vulnerabilities...")
	case pipeline.PersistingFindings:
		ui.PrintSuccess("Vulnerability analysis complete.")
	case pipeline.Failed:
		h.endProgress()
		msg := "Run failed"
		if ev.Err != nil {
			msg += ": " + ev.Err.Error()
		}
		ui.PrintError(msg)
	}
}

// OnProbe redraws the progress counter. Safe for concurrent use.
func (h *ConsoleHook) OnProbe(probe.Result) {
	done := h.done.Add(1)
	if !h.Progress || ui.IsSilent() {
		return
	}

	h.drawMu.Lock()
	defer h.drawMu.Unlock()
	if h.bar == nil {
		h.bar = ui.NewProgressBar(30)
	}
	fmt.Fprintf(ui.Writer(), "\r  %s", h.bar.Counter(done, h.total.Load()))
	h.drawn = true
}

// endProgress terminates the progress line, if one was drawn.
func (h *ConsoleHook) endProgress() {
	h.drawMu.Lock()
	defer h.drawMu.Unlock()
	if h.drawn {
		fmt.Fprintln(ui.Writer())
		h.drawn = false
	}
}

// OnClassified prints the bucket counts and one line per unclassified host.
func (h *ConsoleHook) OnClassified(b classify.Buckets) {
	h.endProgress()
	for _, e := range b.Other {
		if code, ok := e.Outcome.Code(); ok {
			ui.PrintWarning("Subdomain " + e.Host + " returned status code " + strconv.Itoa(code))
		} else {
			ui.PrintWarning("Subdomain " + e.Host + " did not respond")
		}
	}
	ui.PrintConfigLine("200", strconv.Itoa(len(b.Found)))
	ui.PrintConfigLine("403", strconv.Itoa(len(b.Forbidden)))
	ui.PrintConfigLine("404", strconv.Itoa(len(b.NotFound)))
	ui.PrintConfigLine("Other", strconv.Itoa(len(b.Other)))
}

// OnFinding prints a finding as a bracketed result line.
func (h *ConsoleHook) OnFinding(f finding.Finding) {
	parts := []ui.BracketPart{ui.SeverityBracket(string(f.Severity)), ui.TextBracket(string(f.Kind))}
	if f.Method != "" {
		parts = append(parts, ui.TextBracket(f.Method))
	}
	if f.Provider != "" {
		parts = append(parts, ui.TextBracket(f.Provider))
	}
	ui.PrintBracketed(h.out(), f.Host, parts...)
}

// OnComplete prints the run summary.
func (h *ConsoleHook) OnComplete(r *pipeline.Report) {
	ui.PrintSection("Summary")
	ui.PrintConfigLine("Target", r.Target)
	ui.PrintConfigLine("Candidates", strconv.Itoa(r.Candidates))
	ui.PrintConfigLine("Takeovers", strconv.Itoa(len(r.Takeovers)))
	ui.PrintConfigLine("Bypasses", strconv.Itoa(len(r.Bypasses)))
	ui.PrintConfigLine("Output", r.OutputDir)
	ui.PrintConfigLine("Duration", fmt.Sprintf("%dms", r.DurationMS))
}
