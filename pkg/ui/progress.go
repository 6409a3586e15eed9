package ui

import (
	"fmt"
	"strings"
)

// ProgressBar renders a fixed-width completion bar.
type ProgressBar struct {
	Width int
}

// NewProgressBar creates a bar of the given width (minimum 10).
func NewProgressBar(width int) *ProgressBar {
	if width < 10 {
		width = 10
	}
	return &ProgressBar{Width: width}
}

// Render draws the bar for percent in [0, 100]; out-of-range values are clamped.
func (pb *ProgressBar) Render(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(pb.Width))
	full, empty := Icon("█", "#"), Icon("░", "-")
	return ProgressFullStyle.Render(strings.Repeat(full, filled)) +
		ProgressEmptyStyle.Render(strings.Repeat(empty, pb.Width-filled))
}

// Counter renders "[bar] done/total".
func (pb *ProgressBar) Counter(done, total int64) string {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	return fmt.Sprintf("[%s] %d/%d", pb.Render(pct), done, total)
}
