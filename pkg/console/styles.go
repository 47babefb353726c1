package console

import "github.com/charmbracelet/lipgloss"

// Status glyphs — convey meaning without relying on color alone.
const (
	GlyphPending   = "○"
	GlyphCurrent   = "▸"
	GlyphPassed    = "✓"
	GlyphFailed    = "✗"
	GlyphSkipped   = "⏭"
	GlyphOutcome   = "◆"
	GlyphIterating = "⟳"
)

var (
	colorGreen   = lipgloss.Color("42")
	colorRed     = lipgloss.Color("196")
	colorYellow  = lipgloss.Color("214")
	colorBlue    = lipgloss.Color("39")
	colorCyan    = lipgloss.Color("51")
	colorDim     = lipgloss.Color("240")
	colorWhite   = lipgloss.Color("255")
	colorMagenta = lipgloss.Color("201")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var (
	stepPassed = lipgloss.NewStyle().
			Foreground(colorGreen)

	stepFailed = lipgloss.NewStyle().
			Foreground(colorRed)

	stepSkipped = lipgloss.NewStyle().
			Faint(true)

	stepPending = lipgloss.NewStyle().
			Foreground(colorWhite)
)

var panelBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDim).
	Padding(0, 1)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan).
				Padding(0, 1)

	summaryPassedStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	summaryFailedStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	summarySkippedStyle = lipgloss.NewStyle().
				Foreground(colorYellow)
)

var scenarioNameStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorMagenta)

var errorDetailStyle = lipgloss.NewStyle().
	Foreground(colorRed).
	Faint(true)

func glyphFor(status string) (string, lipgloss.Style) {
	switch status {
	case "passed":
		return GlyphPassed, stepPassed
	case "failed":
		return GlyphFailed, stepFailed
	case "skipped":
		return GlyphSkipped, stepSkipped
	default:
		return GlyphPending, stepPending
	}
}
