package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

func panicBackendFactory() BackendFactory {
	return func() (action.Backends, condition.IOProbe, func()) {
		panic(&plan.BackendFatal{Backend: "Terminal", Err: errors.New("boom")})
	}
}

func testBackendFactory() BackendFactory {
	return func() (action.Backends, condition.IOProbe, func()) {
		return newTestBackends(world.TerminalResult{}), condition.IOProbe{}, func() {}
	}
}

func simplePassingScenario(name string, parallel bool) plan.ScenarioPlan {
	return plan.ScenarioPlan{
		Name:     name,
		Parallel: parallel,
		Tests: []plan.TestPlan{
			{
				ID:    "T1",
				Given: []lang.Step{passStep()},
				When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActLog, Arg1: "go"}}},
				Then:  []lang.Step{passStep()},
			},
		},
	}
}

func TestEngineRunPreservesDeclarationOrder(t *testing.T) {
	p := plan.Plan{
		Feature:     "f",
		Settings:    plan.DefaultSettings(),
		InitialVars: value.NewStore(),
		Scenarios: []plan.ScenarioPlan{
			simplePassingScenario("seq-1", false),
			simplePassingScenario("parallel-1", true),
			simplePassingScenario("parallel-2", true),
			simplePassingScenario("seq-2", false),
		},
	}
	e := New(p, testBackendFactory(), nil)
	res := e.Run(context.Background())

	if len(res.Scenarios) != 4 {
		t.Fatalf("expected 4 scenario results, got %d", len(res.Scenarios))
	}
	wantOrder := []string{"seq-1", "parallel-1", "parallel-2", "seq-2"}
	for i, want := range wantOrder {
		if res.Scenarios[i].Name != want {
			t.Fatalf("result[%d] = %q, want %q", i, res.Scenarios[i].Name, want)
		}
		if res.Scenarios[i].Tests[0].Status != "passed" {
			t.Fatalf("scenario %q test did not pass: %+v", want, res.Scenarios[i].Tests[0])
		}
	}
}

func TestEngineRunIsolatesParallelScenarioWorlds(t *testing.T) {
	p := plan.Plan{
		Feature:     "f",
		Settings:    plan.DefaultSettings(),
		InitialVars: value.NewStore(),
		Scenarios: []plan.ScenarioPlan{
			{
				Name:     "a",
				Parallel: true,
				Tests: []plan.TestPlan{{
					ID:    "T1",
					Given: []lang.Step{passStep()},
					When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActUuid, CaptureAs: "ID"}}},
					Then:  []lang.Step{passStep()},
				}},
			},
			{
				Name:     "b",
				Parallel: true,
				Tests: []plan.TestPlan{{
					ID:    "T1",
					Given: []lang.Step{passStep()},
					When:  []lang.Step{{Action: &lang.Action{Kind: lang.ActUuid, CaptureAs: "ID"}}},
					Then:  []lang.Step{passStep()},
				}},
			},
		},
	}
	e := New(p, testBackendFactory(), nil)
	res := e.Run(context.Background())

	for _, sr := range res.Scenarios {
		if sr.Tests[0].Status != "passed" {
			t.Fatalf("scenario %q did not pass: %+v", sr.Name, sr.Tests[0])
		}
	}
}

func TestEngineDebugHookRunsBeforeEachScenario(t *testing.T) {
	p := plan.Plan{
		Feature:     "f",
		Settings:    plan.DefaultSettings(),
		InitialVars: value.NewStore(),
		Scenarios: []plan.ScenarioPlan{
			simplePassingScenario("s1", false),
			simplePassingScenario("s2", false),
		},
	}
	e := New(p, testBackendFactory(), nil)

	var seen []string
	e.Debug = func(name string, w *world.World) {
		if w == nil {
			t.Fatalf("expected a non-nil World for scenario %q", name)
		}
		seen = append(seen, name)
	}
	e.Run(context.Background())

	if len(seen) != 2 || seen[0] != "s1" || seen[1] != "s2" {
		t.Fatalf("expected debug hook called for s1 then s2, got %v", seen)
	}
}

func TestEngineRunSurvivesBackendConstructionPanic(t *testing.T) {
	p := plan.Plan{
		Feature:     "f",
		Settings:    plan.DefaultSettings(),
		InitialVars: value.NewStore(),
		Scenarios:   []plan.ScenarioPlan{simplePassingScenario("s1", false)},
	}
	e := New(p, panicBackendFactory(), nil)
	res := e.Run(context.Background())

	if len(res.Scenarios) != 1 || res.Scenarios[0].Tests[0].Status != "failed" {
		t.Fatalf("expected backend panic to fail every test, got %+v", res.Scenarios)
	}
	if res.Scenarios[0].Tests[0].Reason == "" {
		t.Fatalf("expected a failure reason, got %+v", res.Scenarios[0].Tests[0])
	}
}
