package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/waftester/vulnscan/pkg/defaults"
)

// Global UI state
var (
	silentMode bool
	out        io.Writer = os.Stderr
	uiMu       sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses everything but errors)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// SetOutput redirects console output (default os.Stderr) and returns the
// previous writer.
func SetOutput(w io.Writer) io.Writer {
	uiMu.Lock()
	defer uiMu.Unlock()
	prev := out
	out = w
	return prev
}

// Writer returns the current console writer.
func Writer() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

const miniBanner = `________________________________________________

 %s v%s
 subdomain discovery and takeover checks
________________________________________________`

const bannerSeparator = "________________________________________________"

// PrintBanner prints the boxed application banner
func PrintBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Writer(), BannerStyle.Render(fmt.Sprintf(miniBanner, defaults.ToolName, defaults.Version)))
	fmt.Fprintln(Writer())
}

// PrintConfigBanner prints options in the given order, ffuf style:
//
//	:: Target               : example.com
func PrintConfigBanner(order []string, options map[string]string) {
	if IsSilent() {
		return
	}
	w := Writer()
	for _, name := range order {
		if value := options[name]; value != "" {
			fmt.Fprintf(w, " :: %-20s : %s\n", ConfigLabelStyle.Render(name), ConfigValueStyle.Render(value))
		}
	}
	fmt.Fprintf(w, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintDivider prints a stylized divider
func PrintDivider() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Writer(), DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Writer())
	fmt.Fprintln(Writer(), SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintConfigLine prints a single config line
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(Writer(), "  %s %s\n",
		ConfigLabelStyle.Render(key+":"),
		ConfigValueStyle.Render(value),
	)
}

// BracketPart represents a piece of bracketed output
type BracketPart struct {
	Text  string
	Style lipgloss.Style
}

// SeverityBracket renders a severity as a bracket part
func SeverityBracket(severity string) BracketPart {
	return BracketPart{Text: strings.ToLower(severity), Style: SeverityStyle(strings.ToLower(severity))}
}

// TextBracket renders plain text as a bracket part
func TextBracket(text string) BracketPart {
	return BracketPart{Text: text, Style: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))}
}

// FormatBracketed renders nuclei-style bracketed parts followed by a host:
//
//	[high] [takeover-suspected] assets.example.com
func FormatBracketed(host string, parts ...BracketPart) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(BracketStyle.Render("["))
		b.WriteString(part.Style.Render(part.Text))
		b.WriteString(BracketStyle.Render("] "))
	}
	b.WriteString(HostStyle.Render(host))
	return b.String()
}

// PrintBracketed writes FormatBracketed output to w regardless of silent
// mode; it is used for results, not chatter.
func PrintBracketed(w io.Writer, host string, parts ...BracketPart) {
	fmt.Fprintln(w, FormatBracketed(host, parts...))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Writer(), PassStyle.Render("  "+Icon("✔", "[+]")+" "+message))
}

// PrintError prints an error message. Errors are shown in silent mode too.
func PrintError(message string) {
	fmt.Fprintln(Writer(), FailStyle.Render("  "+Icon("✖", "[X]")+" "+message))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Writer(), WarnStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(Writer(), "  %s %s\n", SpinnerStyle.Render("*"), message)
}
