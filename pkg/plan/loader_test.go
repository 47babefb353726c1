package plan

import (
	"os"
	"testing"

	"github.com/choreo-lang/choreo/pkg/lang"
)

func mustParse(t *testing.T, src string) *lang.File {
	t.Helper()
	f, err := lang.Parse(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return f
}

func TestLoadForeachExpansionProducesUniqueIDs(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal
var L = ["a", "b", "c"]
scenario "s" {
	foreach I in ${L} {
		test T_${I} "runs ${I}" {
			given: Test can_start
			when: Terminal run "echo ${I}"
			then: Terminal last_command succeeded
		}
	}
}
`)
	p, err := Load(f, DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(p.Scenarios) != 1 || len(p.Scenarios[0].Tests) != 3 {
		t.Fatalf("expected 3 expanded tests, got %+v", p.Scenarios)
	}
	ids := map[string]bool{}
	for _, test := range p.Scenarios[0].Tests {
		ids[test.ID] = true
	}
	for _, want := range []string{"T_a", "T_b", "T_c"} {
		if !ids[want] {
			t.Fatalf("expected expanded id %q, got %v", want, ids)
		}
	}
}

func TestLoadTaskInliningHonorsBlockKind(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal
task checkOutput(word) {
	Terminal last_command succeeded
	Terminal output_contains "${word}"
}
scenario "s" {
	test T "d" {
		given: Test can_start
		when: Terminal run "echo hi"
		then: task checkOutput("hi")
	}
}
`)
	p, err := Load(f, DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	then := p.Scenarios[0].Tests[0].Then
	if len(then) != 2 {
		t.Fatalf("expected task body inlined to 2 conditions, got %+v", then)
	}
	if then[1].Condition == nil || then[1].Condition.Arg != "hi" {
		t.Fatalf("expected param substituted into inlined condition, got %+v", then[1])
	}
}

func TestLoadTaskInliningRejectsMixedKindFromThen(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal
task doThings() {
	Terminal run "echo hi"
}
scenario "s" {
	test T "d" {
		given: Test can_start
		when: Terminal run "echo hi"
		then: task doThings()
	}
}
`)
	if _, err := Load(f, DefaultSettings()); err == nil {
		t.Fatal("expected mixed_step_kinds load error, got nil")
	}
}

func TestLoadMissingEnvFails(t *testing.T) {
	os.Unsetenv("CHOREO_TEST_LOADER_VAR")
	f := mustParse(t, `
feature "x"
env CHOREO_TEST_LOADER_VAR
scenario "s" {
	test T "d" {
		given: Test can_start
		when: System pause 1s
		then: wait <= 2s
	}
}
`)
	if _, err := Load(f, DefaultSettings()); err == nil {
		t.Fatal("expected missing_env load error, got nil")
	}
}

func TestLoadUnknownActorFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Web
scenario "s" {
	test T "d" {
		given: Test can_start
		when: Terminal run "echo hi"
		then: Terminal last_command succeeded
	}
}
`)
	if _, err := Load(f, DefaultSettings()); err == nil {
		t.Fatal("expected undeclared_actor load error, got nil")
	}
}

func TestLoadUnknownTestDependencyFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal
scenario "s" {
	test T "d" {
		given: Test has_succeeded Ghost
		when: Terminal run "echo hi"
		then: Terminal last_command succeeded
	}
}
`)
	if _, err := Load(f, DefaultSettings()); err == nil {
		t.Fatal("expected unknown_test_reference load error, got nil")
	}
}

func TestLoadSettingsMergeOverridesDefaults(t *testing.T) {
	f := mustParse(t, `
feature "x"
settings {
	timeout_seconds: 5
}
scenario "s" {}
`)
	p, err := Load(f, DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if p.Settings.TimeoutSeconds != 5 {
		t.Fatalf("expected override timeout 5, got %v", p.Settings.TimeoutSeconds)
	}
	if p.Settings.ShellPath != "sh" {
		t.Fatalf("expected default shell_path to survive merge, got %q", p.Settings.ShellPath)
	}
}

func TestLoadGoldenFixturesProduceRunnablePlans(t *testing.T) {
	// filesystem_and_web.chor declares `env API_TOKEN`, which must be set
	// for the load to succeed.
	t.Setenv("API_TOKEN", "placeholder")
	for _, name := range []string{
		"../../testdata/hello.chor",
		"../../testdata/filesystem_and_web.chor",
		"../../testdata/lint_unused_actor.chor",
	} {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		f, err := lang.Parse(string(src))
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		p, err := Load(f, DefaultSettings())
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if len(p.Scenarios) == 0 {
			t.Fatalf("%s: expected at least one scenario", name)
		}
	}
}
