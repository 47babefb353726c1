package console

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderer is a package-level glamour renderer, built once since
// NewTermRenderer does real work (loading the chroma style) on each call.
var renderer *glamour.TermRenderer

func init() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		renderer = r
	}
}

// renderFailureDetail renders a failed step's reason and captured output
// as a markdown code block under --verbose. Falls back to the raw text
// if glamour is unavailable or rendering fails.
func renderFailureDetail(reason, stdout, stderr string) string {
	var b strings.Builder
	b.WriteString(reason)
	b.WriteString("\n")
	if stdout != "" {
		b.WriteString("\n**stdout**\n```\n")
		b.WriteString(stdout)
		b.WriteString("\n```\n")
	}
	if stderr != "" {
		b.WriteString("\n**stderr**\n```\n")
		b.WriteString(stderr)
		b.WriteString("\n```\n")
	}
	md := b.String()

	if renderer == nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
