package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

type fakeTerminal struct{ result world.TerminalResult }

func (f *fakeTerminal) Run(context.Context, string) (world.TerminalResult, error) {
	return f.result, nil
}

type fakeWeb struct{}

func (fakeWeb) SetHeader(string, string)                                   {}
func (fakeWeb) ClearHeader(string)                                         {}
func (fakeWeb) ClearHeaders()                                              {}
func (fakeWeb) SetCookie(string, string)                                   {}
func (fakeWeb) ClearCookie(string)                                        {}
func (fakeWeb) ClearCookies()                                              {}
func (fakeWeb) Get(context.Context, string) (world.WebResponse, error)    { return world.WebResponse{}, nil }
func (fakeWeb) Delete(context.Context, string) (world.WebResponse, error) { return world.WebResponse{}, nil }
func (fakeWeb) Post(context.Context, string, string) (world.WebResponse, error) {
	return world.WebResponse{}, nil
}
func (fakeWeb) Put(context.Context, string, string) (world.WebResponse, error) {
	return world.WebResponse{}, nil
}
func (fakeWeb) Patch(context.Context, string, string) (world.WebResponse, error) {
	return world.WebResponse{}, nil
}

type fakeFS struct{}

func (fakeFS) CreateDir(string) error          { return nil }
func (fakeFS) CreateFile(string, string) error { return nil }
func (fakeFS) DeleteDir(string) error          { return nil }
func (fakeFS) DeleteFile(string) error         { return nil }
func (fakeFS) ReadFile(string) (string, error) { return "", nil }

type fakeSystem struct{}

func (fakeSystem) Pause(time.Duration) {}
func (fakeSystem) Log(string)          {}
func (fakeSystem) UUID() string        { return "fixed-uuid" }
func (fakeSystem) Timestamp() string   { return "fixed-timestamp" }

func newTestBackends(result world.TerminalResult) action.Backends {
	return action.Backends{
		Terminal:   &fakeTerminal{result: result},
		Web:        fakeWeb{},
		FileSystem: fakeFS{},
		System:     fakeSystem{},
	}
}

func newTestScenario(sp plan.ScenarioPlan, settings plan.Settings, result world.TerminalResult) *Scenario {
	w := world.New(value.NewStore())
	return NewScenario(sp, settings, w, newTestBackends(result), condition.IOProbe{}, nil)
}

func passStep() lang.Step {
	return lang.Step{Condition: &lang.Condition{Kind: lang.CondTestCanStart}}
}

func TestScenarioRunPassesSimpleTest(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{passStep()},
			},
		},
	}
	sc := newTestScenario(sp, plan.DefaultSettings(), world.TerminalResult{})
	res := sc.Run(context.Background())

	if len(res.Tests) != 1 || res.Tests[0].Status != "passed" {
		t.Fatalf("expected T1 passed, got %+v", res.Tests)
	}
}

func TestScenarioRunFailsOnFailingThenCondition(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActRun, Arg1: "exit 1"}}},
				Then:  []lang.Step{{Condition: &lang.Condition{Kind: lang.CondExitCodeIs, Number: 0}}},
			},
		},
	}
	result := world.TerminalResult{Have: true, Drained: true, ExitCode: 1}
	sc := newTestScenario(sp, plan.DefaultSettings(), result)
	res := sc.Run(context.Background())

	if res.Tests[0].Status != "failed" {
		t.Fatalf("expected T1 failed, got %+v", res.Tests[0])
	}
}

func TestScenarioRunSkipsDependentOnFailedPrerequisite(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActRun, Arg1: "exit 1"}}},
				Then:  []lang.Step{{Condition: &lang.Condition{Kind: lang.CondExitCodeIs, Number: 0}}},
			},
			{
				ID:    "T2",
				Given: []lang.Step{{Condition: &lang.Condition{Kind: lang.CondTestHasSucceeded, Path: "T1"}}},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{passStep()},
			},
		},
	}
	result := world.TerminalResult{Have: true, Drained: true, ExitCode: 1}
	sc := newTestScenario(sp, plan.DefaultSettings(), result)
	res := sc.Run(context.Background())

	var t1, t2 TestResult
	for _, r := range res.Tests {
		switch r.ID {
		case "T1":
			t1 = r
		case "T2":
			t2 = r
		}
	}
	if t1.Status != "failed" {
		t.Fatalf("expected T1 failed, got %+v", t1)
	}
	if t2.Status != "skipped" {
		t.Fatalf("expected T2 skipped because its dependency failed, got %+v", t2)
	}
}

func TestScenarioRunThenPendingAtTimeoutBecomesFailed(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{{Condition: &lang.Condition{Kind: lang.CondWaitAtLeast, DurationSec: 60}}},
			},
		},
	}
	settings := plan.DefaultSettings()
	settings.TimeoutSeconds = 0.05
	sc := newTestScenario(sp, settings, world.TerminalResult{})
	res := sc.Run(context.Background())

	if res.Tests[0].Status != "failed" {
		t.Fatalf("expected a then-block test still pending at timeout to be Failed, got %+v", res.Tests[0])
	}
}

func TestScenarioRunGivenPendingAtTimeoutBecomesTimedOut(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{{Condition: &lang.Condition{Kind: lang.CondWaitAtLeast, DurationSec: 60}}},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{passStep()},
			},
		},
	}
	settings := plan.DefaultSettings()
	settings.TimeoutSeconds = 0.05
	sc := newTestScenario(sp, settings, world.TerminalResult{})
	res := sc.Run(context.Background())

	// TimedOut still reports as "failed" in the summarized result, but the
	// reason distinguishes it from a then-block condition failure.
	if res.Tests[0].Reason != "scenario timeout elapsed" {
		t.Fatalf("expected given-block wait to time out, got %+v", res.Tests[0])
	}
}

func TestScenarioRunStopOnFailureSkipsRemainingTests(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActRun, Arg1: "exit 1"}}},
				Then:  []lang.Step{{Condition: &lang.Condition{Kind: lang.CondExitCodeIs, Number: 0}}},
			},
			{
				ID:    "T2",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{passStep()},
			},
		},
	}
	settings := plan.DefaultSettings()
	settings.StopOnFailure = true
	result := world.TerminalResult{Have: true, Drained: true, ExitCode: 1}
	sc := newTestScenario(sp, settings, result)
	res := sc.Run(context.Background())

	var t2 TestResult
	for _, r := range res.Tests {
		if r.ID == "T2" {
			t2 = r
		}
	}
	if t2.Status != "skipped" {
		t.Fatalf("expected T2 skipped under stop_on_failure, got %+v", t2)
	}
}

func TestScenarioRunAfterBlockRunsRegardlessOfOutcome(t *testing.T) {
	sp := plan.ScenarioPlan{
		Name: "s1",
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActRun, Arg1: "exit 1"}}},
				Then:  []lang.Step{{Condition: &lang.Condition{Kind: lang.CondExitCodeIs, Number: 0}}},
			},
		},
		After: []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "cleanup"}}},
	}
	result := world.TerminalResult{Have: true, Drained: true, ExitCode: 1}
	sc := newTestScenario(sp, plan.DefaultSettings(), result)
	res := sc.Run(context.Background())

	if len(res.After) != 1 || res.After[0].Status != "passed" {
		t.Fatalf("expected after block to run and pass, got %+v", res.After)
	}
}

func TestScenarioRunsGoldenFixture(t *testing.T) {
	src, err := os.ReadFile("../../testdata/hello.chor")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	f, err := lang.Parse(string(src))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	p, err := plan.Load(f, plan.DefaultSettings())
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	if len(p.Scenarios) != 1 {
		t.Fatalf("expected one scenario, got %d", len(p.Scenarios))
	}

	result := world.TerminalResult{Have: true, Drained: true, ExitCode: 0, Combined: "hello\n"}
	sc := newTestScenario(p.Scenarios[0], p.Settings, result)
	res := sc.Run(context.Background())

	if len(res.Tests) != 1 || res.Tests[0].Status != "passed" {
		t.Fatalf("expected T1 to pass, got %+v", res.Tests)
	}
}
