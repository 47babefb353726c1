// Package console renders an engine run as colorized, human-readable
// terminal output: a tree of scenarios and their tests followed by a
// summary panel, the interactive counterpart to pkg/report's JSON format.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/choreo-lang/choreo/pkg/engine"
)

// Printer writes a run's results to w. Verbose enables glamour-rendered
// markdown detail blocks for failed steps.
type Printer struct {
	w       io.Writer
	Verbose bool
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintFeature renders one feature's full run result.
func (p *Printer) PrintFeature(res engine.RunResult) {
	fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf("%s %s", GlyphOutcome, res.Feature)))

	for _, sr := range res.Scenarios {
		p.printScenario(sr)
	}

	p.printSummary(res)
}

func (p *Printer) printScenario(sr engine.ScenarioResult) {
	fmt.Fprintln(p.w, "  "+scenarioNameStyle.Render(sr.Name))
	for _, tr := range sr.Tests {
		glyph, style := glyphFor(tr.Status)
		line := fmt.Sprintf("    %s %s", glyph, tr.ID)
		if tr.Description != "" {
			line += " — " + tr.Description
		}
		fmt.Fprintln(p.w, style.Render(line))

		if tr.Status == "failed" && p.Verbose && tr.Reason != "" {
			detail := renderFailureDetail(tr.Reason, "", "")
			for _, l := range strings.Split(detail, "\n") {
				fmt.Fprintln(p.w, "      "+errorDetailStyle.Render(l))
			}
		}
	}
	for _, ar := range sr.After {
		glyph, style := glyphFor(ar.Status)
		fmt.Fprintln(p.w, style.Render(fmt.Sprintf("    %s after: %s", glyph, ar.Name)))
	}
}

func (p *Printer) printSummary(res engine.RunResult) {
	var tests, passed, failed, skipped int
	for _, sr := range res.Scenarios {
		for _, tr := range sr.Tests {
			tests++
			switch tr.Status {
			case "passed":
				passed++
			case "failed":
				failed++
			case "skipped":
				skipped++
			}
		}
	}

	fmt.Fprintln(p.w, panelBorder.Render(summaryTitleStyle.Render("Summary")+"\n"+summaryLine(tests, passed, failed, skipped)))
}

func summaryLine(tests, passed, failed, skipped int) string {
	cols := []string{
		summaryPassedStyle.Render(fmt.Sprintf("%d passed", passed)),
		summaryFailedStyle.Render(fmt.Sprintf("%d failed", failed)),
		summarySkippedStyle.Render(fmt.Sprintf("%d skipped", skipped)),
		fmt.Sprintf("%d total", tests),
	}
	return alignColumns(cols)
}

// alignColumns joins cols with padding so the rune width of every column
// lines up, accounting for wide/ambiguous-width runes the way a plain
// len()-based pad would get wrong.
func alignColumns(cols []string) string {
	width := 0
	for _, c := range cols {
		if w := runewidth.StringWidth(c); w > width {
			width = w
		}
	}
	padded := make([]string, len(cols))
	for i, c := range cols {
		pad := width - runewidth.StringWidth(c)
		padded[i] = c + strings.Repeat(" ", pad)
	}
	return strings.Join(padded, "  ")
}
