package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by every command.
var (
	Green   = lipgloss.Color("10") // success, assistant
	Red     = lipgloss.Color("9")  // errors
	Grey    = lipgloss.Color("8")  // muted text
	Blue    = lipgloss.Color("4")  // user label, borders
	Magenta = lipgloss.Color("5")  // categories
	White   = lipgloss.Color("15") // headers
)

// Status indicators
const (
	EnabledIcon  = "●"
	DisabledIcon = "○"
	SuccessIcon  = "✓"
	FailIcon     = "✗"
)

// Styles holds text styles bound to one output's renderer, so color is
// dropped automatically when that output is not a terminal.
type Styles struct {
	renderer *lipgloss.Renderer

	Title     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Bold      lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Category  lipgloss.Style
	Key       lipgloss.Style
}

// NewStyles creates styles for w.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)

	return &Styles{
		renderer: r,

		Title: r.NewStyle().
			Bold(true).
			Foreground(White),

		Success: r.NewStyle().
			Foreground(Green),

		Error: r.NewStyle().
			Foreground(Red),

		Muted: r.NewStyle().
			Foreground(Grey),

		Bold: r.NewStyle().
			Bold(true),

		User: r.NewStyle().
			Bold(true).
			Foreground(Blue),

		Assistant: r.NewStyle().
			Bold(true).
			Foreground(Green),

		Category: r.NewStyle().
			Foreground(Magenta),

		Key: r.NewStyle().
			Foreground(Grey).
			Width(16),
	}
}

// DefaultStyles returns styles for stderr.
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// FormatEnabled returns a styled enabled/disabled indicator
func (s *Styles) FormatEnabled(enabled bool) string {
	if enabled {
		return s.Success.Render(EnabledIcon + " enabled")
	}
	return s.Muted.Render(DisabledIcon + " disabled")
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
