package lang

import "testing"

const scenarioASource = `
feature "x"
actor Terminal
scenario "s" {
	test T "desc" {
		given: Test can_start
		when: Terminal run "true"
		then: Terminal last_command succeeded
	}
}
`

func TestParseScenarioA(t *testing.T) {
	f, err := Parse(scenarioASource)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if f.Feature != "x" {
		t.Fatalf("feature = %q", f.Feature)
	}
	if len(f.Scenarios) != 1 || len(f.Scenarios[0].Entries) != 1 {
		t.Fatalf("expected one scenario with one test, got %+v", f.Scenarios)
	}
	test := f.Scenarios[0].Entries[0].Test
	if test == nil || test.ID != "T" {
		t.Fatalf("expected test T, got %+v", test)
	}
	if len(test.When) != 1 || test.When[0].Action == nil || test.When[0].Action.Kind != ActRun {
		t.Fatalf("expected a Terminal run action, got %+v", test.When)
	}
	if len(test.Then) != 1 || test.Then[0].Condition == nil || test.Then[0].Condition.Kind != CondLastCommandSucceeded {
		t.Fatalf("expected a last_command succeeded condition, got %+v", test.Then)
	}
}

func TestParseForeachExpansionSource(t *testing.T) {
	src := `
feature "x"
actor Terminal
var L = ["a", "b", "c"]
scenario "s" {
	foreach I in ${L} {
		test T_${I} "desc" {
			given: Test can_start
			when: Terminal run "echo ${I}"
			then: Terminal last_command succeeded
		}
	}
}
`
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(f.Scenarios[0].Entries) != 1 || f.Scenarios[0].Entries[0].ForEach == nil {
		t.Fatalf("expected one foreach entry, got %+v", f.Scenarios[0].Entries)
	}
	fe := f.Scenarios[0].Entries[0].ForEach
	if fe.Var != "I" || fe.ListName != "L" {
		t.Fatalf("unexpected foreach fields: %+v", fe)
	}
}

func TestParseSettingsBlock(t *testing.T) {
	src := `
feature "x"
settings {
	timeout_seconds: 10
	stop_on_failure: true
	shell_path: "/bin/bash"
}
scenario "s" {}
`
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if f.Settings.TimeoutSeconds == nil || *f.Settings.TimeoutSeconds != 10 {
		t.Fatalf("timeout_seconds not parsed: %+v", f.Settings)
	}
	if f.Settings.StopOnFailure == nil || !*f.Settings.StopOnFailure {
		t.Fatalf("stop_on_failure not parsed: %+v", f.Settings)
	}
}

func TestParseWaitCondition(t *testing.T) {
	src := `
feature "x"
scenario "s" {
	test T "d" {
		given: Test can_start
		when: System pause 1s
		then: wait <= 2s
	}
}
`
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	then := f.Scenarios[0].Entries[0].Test.Then
	if len(then) != 1 || then[0].Condition.Kind != CondWaitAtMost || then[0].Condition.DurationSec != 2 {
		t.Fatalf("unexpected wait condition: %+v", then)
	}
}
