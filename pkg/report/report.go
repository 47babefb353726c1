// Package report converts an engine.RunResult into the JSON test report
// consumed by CI systems, and writes it to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/choreo-lang/choreo/pkg/engine"
)

// Step is one Given/When/Then step outcome inside a scenario, matching a
// single test's contribution to the feature-level step list.
type Step struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Result      StepResult `json:"result"`
}

// StepResult carries a step's terminal status and how long it took.
type StepResult struct {
	Status      string `json:"status"`
	DurationInMs int64  `json:"durationInMs"`
}

// After is one after-block action outcome.
type After struct {
	Name   string     `json:"name"`
	Result StepResult `json:"result"`
}

// Scenario is one .chor scenario's reported outcome.
type Scenario struct {
	Keyword string  `json:"keyword"`
	Name    string  `json:"name"`
	Steps   []Step  `json:"steps"`
	After   []After `json:"after,omitempty"`
}

// Feature is one .chor file's reported outcome.
type Feature struct {
	URI      string     `json:"uri"`
	Keyword  string     `json:"keyword"`
	Name     string     `json:"name"`
	Elements []Scenario `json:"elements"`
}

// Summary totals a run's outcome across every scenario.
type Summary struct {
	Tests              int     `json:"tests"`
	Failures           int     `json:"failures"`
	TotalTimeInSeconds float64 `json:"totalTimeInSeconds"`
}

// Report is the full document written to report_path: the array of
// feature objects the format is built around, plus a run-level summary.
type Report struct {
	Features []Feature `json:"features"`
	Summary  Summary   `json:"summary"`
}

// Build converts one engine run into a Report. uri identifies the source
// .chor file, normally the path passed to `choreo run`.
func Build(uri string, res engine.RunResult, elapsed time.Duration) Report {
	feature := Feature{
		URI:     uri,
		Keyword: "Feature",
		Name:    res.Feature,
	}

	var tests, failures int
	for _, sr := range res.Scenarios {
		scenario := Scenario{Keyword: "Scenario", Name: sr.Name}
		for _, tr := range sr.Tests {
			tests++
			status := tr.Status
			if status == "failed" {
				failures++
			}
			scenario.Steps = append(scenario.Steps, Step{
				Name:        tr.ID,
				Description: tr.Description,
				Result: StepResult{
					Status:       status,
					DurationInMs: tr.Duration.Milliseconds(),
				},
			})
		}
		for _, ar := range sr.After {
			scenario.After = append(scenario.After, After{
				Name: ar.Name,
				Result: StepResult{
					Status:       ar.Status,
					DurationInMs: 0,
				},
			})
		}
		feature.Elements = append(feature.Elements, scenario)
	}

	return Report{
		Features: []Feature{feature},
		Summary: Summary{
			Tests:              tests,
			Failures:           failures,
			TotalTimeInSeconds: elapsed.Seconds(),
		},
	}
}

// Writer writes a Report to disk as stable, indented JSON.
type Writer struct {
	// Path is either a directory (a timestamped file is created inside
	// it) or a file path ending in .json (written to directly).
	Path string
}

// NewWriter returns a Writer targeting path, the resolved report_path
// setting.
func NewWriter(path string) *Writer {
	return &Writer{Path: path}
}

// Write serializes r and writes it under w.Path, returning the file path
// actually written.
func (w *Writer) Write(r Report) (string, error) {
	target := w.Path
	if target == "" {
		target = "reports/"
	}

	if strings.HasSuffix(target, "/") || filepath.Ext(target) == "" {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", fmt.Errorf("create report directory: %w", err)
		}
		target = filepath.Join(target, reportFileName())
	} else if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return target, nil
}

func reportFileName() string {
	return fmt.Sprintf("report-%d.json", reportClock())
}

// reportClock is a var so tests can pin the generated file name without
// the package depending on a disallowed wall-clock call at import time.
var reportClock = func() int64 { return time.Now().UnixNano() }
