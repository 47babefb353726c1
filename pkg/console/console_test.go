package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/choreo-lang/choreo/pkg/engine"
)

func TestPrintFeatureIncludesScenarioAndTestNames(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.PrintFeature(engine.RunResult{
		Feature: "checkout flow",
		Scenarios: []engine.ScenarioResult{
			{
				Name: "happy path",
				Tests: []engine.TestResult{
					{ID: "T1", Description: "adds item", Status: "passed", Duration: time.Millisecond},
					{ID: "T2", Description: "fails to pay", Status: "failed", Reason: "exit code was 1, want 0"},
				},
			},
		},
	})

	out := buf.String()
	for _, want := range []string{"checkout flow", "happy path", "T1", "adds item", "T2", "fails to pay"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintFeatureVerboseIncludesReason(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Verbose = true
	p.PrintFeature(engine.RunResult{
		Feature: "f",
		Scenarios: []engine.ScenarioResult{
			{
				Name: "s1",
				Tests: []engine.TestResult{
					{ID: "T1", Status: "failed", Reason: "exit code was 1, want 0"},
				},
			},
		},
	})

	if !strings.Contains(buf.String(), "exit code was 1, want 0") {
		t.Fatalf("expected verbose output to include failure reason, got:\n%s", buf.String())
	}
}

func TestAlignColumnsPadsToWidestColumn(t *testing.T) {
	out := alignColumns([]string{"a", "ccc"})
	// "a" is padded to width 3 before the 2-space join separator.
	want := "a    ccc"
	if out != want {
		t.Fatalf("alignColumns = %q, want %q", out, want)
	}
}
