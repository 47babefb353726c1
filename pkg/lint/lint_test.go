package lint

import (
	"os"
	"testing"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
)

func mustParse(t *testing.T, src string) *lang.File {
	t.Helper()
	f, err := lang.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func mustReadFixture(t *testing.T, name string) *lang.File {
	t.Helper()
	src, err := os.ReadFile("../../testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return mustParse(t, string(src))
}

func TestLintWarnsOnUnusedActor(t *testing.T) {
	diags := Lint(mustReadFixture(t, "lint_unused_actor.chor"), plan.DefaultSettings())
	found := false
	for _, d := range diags {
		if d.Code == "W003" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W003 unused-actor warning, got %+v", diags)
	}
}

func TestLintWarnsOnEmptyScenario(t *testing.T) {
	src := `
feature "f"
scenario "empty" {
}
`
	diags := Lint(mustParse(t, src), plan.DefaultSettings())
	found := false
	for _, d := range diags {
		if d.Code == "W004" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W004 empty-scenario warning, got %+v", diags)
	}
}

func TestLintCleanFileHasNoErrors(t *testing.T) {
	src := `
feature "f"
actor Terminal
scenario "s" {
	test T1 "does a thing" {
		given: Test can_start
		when: Terminal run "true"
		then: Terminal last_command succeeded
	}
}
`
	diags := Lint(mustParse(t, src), plan.DefaultSettings())
	if HasErrors(diags) {
		t.Fatalf("expected no errors, got %+v", diags)
	}
}

func TestCountBySeverity(t *testing.T) {
	diags := []Diagnostic{
		{Code: "E001", Severity: SeverityError},
		{Code: "W001", Severity: SeverityWarning},
		{Code: "W002", Severity: SeverityWarning},
		{Code: "I001", Severity: SeverityInfo},
	}
	errs, warns, infos := CountBySeverity(diags)
	if errs != 1 || warns != 2 || infos != 1 {
		t.Fatalf("CountBySeverity = %d,%d,%d", errs, warns, infos)
	}
}
