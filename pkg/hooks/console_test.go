package hooks

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waftester/vulnscan/pkg/pipeline"
	"github.com/waftester/vulnscan/pkg/ui"
)

func captureConsole(t *testing.T) (*bytes.Buffer, *bytes.Buffer, *ConsoleHook) {
	t.Helper()
	ui.SetNoColor(true)
	var chatter, results bytes.Buffer
	prev := ui.SetOutput(&chatter)
	t.Cleanup(func() {
		ui.SetOutput(prev)
		ui.SetSilent(false)
	})
	hook := NewConsoleHook(false)
	hook.Results = &results
	return &chatter, &results, hook
}

func TestConsoleHook_StageMessages(t *testing.T) {
	chatter, results, hook := captureConsole(t)
	replayRun(hook)

	out := chatter.String()
	msgs := []string{
		"Gathering subdomains for example.com...",
		"Found 5 subdomains.",
		"Checking status codes of subdomains...",
		"Subdomain d.example.com returned status code 500",
		"Subdomain e.example.com did not respond",
		"Analyzing vulnerabilities...",
		"Vulnerability analysis complete.",
	}
	last := -1
	for _, m := range msgs {
		idx := strings.Index(out, m)
		if assert.GreaterOrEqual(t, idx, 0, "missing %q", m) {
			assert.Greater(t, idx, last, "%q out of order", m)
			last = idx
		}
	}

	assert.Equal(t,
		"[high] [takeover-suspected] [AWS S3] b.example.com\n"+
			"[medium] [forbidden-bypass] [OPTIONS] c.example.com\n",
		results.String())
}

func TestConsoleHook_SilentKeepsFindings(t *testing.T) {
	chatter, results, hook := captureConsole(t)
	ui.SetSilent(true)
	replayRun(hook)

	assert.Empty(t, chatter.String())
	assert.Contains(t, results.String(), "b.example.com")
}

func TestConsoleHook_FailurePrintedInSilentMode(t *testing.T) {
	chatter, _, hook := captureConsole(t)
	ui.SetSilent(true)

	ev := stageEvent(pipeline.Failed, 0)
	ev.Err = errors.New("disk full")
	hook.OnStage(ev)

	assert.Contains(t, chatter.String(), "Run failed: disk full")
}

func TestConsoleHook_Progress(t *testing.T) {
	chatter, _, hook := captureConsole(t)
	hook.Progress = true
	replayRun(hook)

	assert.Contains(t, chatter.String(), "5/5")
}
