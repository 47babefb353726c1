// Package lint implements `choreo lint`: a strict superset of validate
// that keeps collecting diagnostics after the first problem instead of
// aborting, so a single pass discovers every failing case rather than
// stopping at the first.
package lint

import (
	"fmt"
	"sort"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
)

// Severity mirrors the three levels the diagnostic codes below are
// grouped under: E (blocks a run), W (likely a mistake), I (style note).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one lint finding. Code is a stable E/W/I-prefixed
// identifier so tooling and docs can reference a specific check.
type Diagnostic struct {
	Code     string
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s [%s] line %d: %s", d.Code, d.Severity, d.Line, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Code, d.Severity, d.Message)
}

// Lint runs every check against f and returns every diagnostic found,
// sorted by source order. An empty result means f is clean.
func Lint(f *lang.File, config plan.Settings) []Diagnostic {
	var diags []Diagnostic

	if _, err := plan.Load(f, config); err != nil {
		if le, ok := err.(*plan.LoadError); ok {
			diags = append(diags, Diagnostic{
				Code:     "E001",
				Severity: SeverityError,
				Line:     le.Line,
				Message:  le.Message,
			})
		} else {
			diags = append(diags, Diagnostic{Code: "E001", Severity: SeverityError, Message: err.Error()})
		}
	}

	diags = append(diags, lintFeature(f)...)
	diags = append(diags, lintActors(f)...)
	diags = append(diags, lintScenarios(f)...)
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })
	return diags
}

func lintFeature(f *lang.File) []Diagnostic {
	var diags []Diagnostic
	if f.Feature == "" {
		diags = append(diags, Diagnostic{
			Code: "W001", Severity: SeverityWarning,
			Message: "feature has no name",
		})
	}
	if len(f.Scenarios) == 0 {
		diags = append(diags, Diagnostic{
			Code: "W002", Severity: SeverityWarning,
			Message: "feature declares no scenarios",
		})
	}
	return diags
}

// lintActors warns about actors declared but never referenced by any
// step, a common copy-paste leftover.
func lintActors(f *lang.File) []Diagnostic {
	used := make(map[string]bool)
	walkSteps(f, func(s lang.Step) {
		switch {
		case s.Action != nil && s.Action.Actor != "":
			used[s.Action.Actor] = true
		case s.Condition != nil && s.Condition.Actor != "":
			used[s.Condition.Actor] = true
		}
	})

	var diags []Diagnostic
	for _, a := range f.Actors {
		if !used[a] {
			diags = append(diags, Diagnostic{
				Code: "W003", Severity: SeverityWarning,
				Message: fmt.Sprintf("actor %q is declared but never used", a),
			})
		}
	}
	return diags
}

func lintScenarios(f *lang.File) []Diagnostic {
	var diags []Diagnostic
	for _, sc := range f.Scenarios {
		if len(sc.Entries) == 0 {
			diags = append(diags, Diagnostic{
				Code: "W004", Severity: SeverityWarning, Line: sc.Line,
				Message: fmt.Sprintf("scenario %q has no tests", sc.Name),
			})
		}
		for _, entry := range sc.Entries {
			if entry.Test != nil && entry.Test.Description == "" {
				diags = append(diags, Diagnostic{
					Code: "I001", Severity: SeverityInfo, Line: entry.Test.Line,
					Message: fmt.Sprintf("test %q has no description", entry.Test.ID),
				})
			}
			if entry.Test != nil && len(entry.Test.When) == 0 {
				diags = append(diags, Diagnostic{
					Code: "W005", Severity: SeverityWarning, Line: entry.Test.Line,
					Message: fmt.Sprintf("test %q has an empty when block", entry.Test.ID),
				})
			}
		}
		if sc.Parallel && len(sc.After) == 0 {
			diags = append(diags, Diagnostic{
				Code: "I002", Severity: SeverityInfo, Line: sc.Line,
				Message: fmt.Sprintf("parallel scenario %q has no after block for cleanup", sc.Name),
			})
		}
	}
	return diags
}

// walkSteps visits every step in every test across background, scenario
// bodies, foreach templates, and after blocks.
func walkSteps(f *lang.File, visit func(lang.Step)) {
	visitAll := func(steps []lang.Step) {
		for _, s := range steps {
			visit(s)
		}
	}
	visitAll(f.Background)
	for _, sc := range f.Scenarios {
		for _, entry := range sc.Entries {
			if entry.Test != nil {
				visitAll(entry.Test.Given)
				visitAll(entry.Test.When)
				visitAll(entry.Test.Then)
			}
			if entry.ForEach != nil {
				visitAll(entry.ForEach.Template.Given)
				visitAll(entry.ForEach.Template.When)
				visitAll(entry.ForEach.Template.Then)
			}
		}
		visitAll(sc.After)
	}
	for _, t := range f.Tasks {
		visitAll(t.Body)
	}
}

// HasErrors reports whether diags contains any error-severity entry.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns how many diagnostics of each severity are present.
func CountBySeverity(diags []Diagnostic) (errors, warnings, infos int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		}
	}
	return
}
