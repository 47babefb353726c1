package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/tracelog"
	"github.com/choreo-lang/choreo/pkg/world"
)

// BackendFactory constructs a fresh Backends set and IOProbe for one
// scenario run, plus a teardown callback invoked once that scenario
// finishes. Each scenario gets its own call so parallel scenarios never
// share a PTY session or HTTP client; cmd/choreo supplies the concrete
// factory wiring pkg/backend/{terminal,web,filesystem,system}.
type BackendFactory func() (action.Backends, condition.IOProbe, func())

// DebugHook is invoked once per scenario, immediately before its tests
// start ticking, with that scenario's fresh World. pkg/debug uses this to
// drop into an interactive REPL over the scenario's variables before any
// backend action runs.
type DebugHook func(scenarioName string, w *world.World)

// Engine runs every scenario in a Plan: parallel scenarios concurrently,
// sequential scenarios afterward in declaration order. This generalizes
// the reference engine's fork-goroutine-per-parallel-branch pattern from
// forking a shared runbook's variables to forking an entire scenario onto
// its own World and backend set.
type Engine struct {
	plan     plan.Plan
	backends BackendFactory
	trace    *tracelog.Writer

	// Debug, when set, is called before every scenario starts. Left nil
	// in normal runs; `choreo run --debug` sets it to pkg/debug's REPL.
	Debug DebugHook
}

// New constructs an Engine. trace may be nil to disable trace emission.
func New(p plan.Plan, backends BackendFactory, trace *tracelog.Writer) *Engine {
	return &Engine{plan: p, backends: backends, trace: trace}
}

// Run executes every scenario and returns results in declaration order,
// regardless of which ones ran concurrently.
func (e *Engine) Run(ctx context.Context) RunResult {
	results := make([]ScenarioResult, len(e.plan.Scenarios))

	var parallelIdx, sequentialIdx []int
	for i, sp := range e.plan.Scenarios {
		if sp.Parallel {
			parallelIdx = append(parallelIdx, i)
		} else {
			sequentialIdx = append(sequentialIdx, i)
		}
	}

	var wg sync.WaitGroup
	for _, i := range parallelIdx {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.runScenario(ctx, e.plan.Scenarios[i])
		}(i)
	}
	wg.Wait()

	for _, i := range sequentialIdx {
		results[i] = e.runScenario(ctx, e.plan.Scenarios[i])
	}

	return RunResult{Feature: e.plan.Feature, Scenarios: results}
}

func (e *Engine) runScenario(ctx context.Context, sp plan.ScenarioPlan) (result ScenarioResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fatalScenarioResult(sp, r)
		}
	}()

	w := world.New(e.plan.InitialVars)
	if e.Debug != nil {
		e.Debug(sp.Name, w)
	}
	backends, probe, teardown := e.backends()
	defer teardown()

	sc := NewScenario(sp, e.plan.Settings, w, backends, probe, e.trace)
	return sc.Run(ctx)
}

// fatalScenarioResult turns a BackendFactory panic — a backend that could
// not be constructed at all, e.g. no pty available — into every declared
// test failing with the same reason, the way a ScenarioTimeout fails
// every still-pending test rather than aborting the whole run.
func fatalScenarioResult(sp plan.ScenarioPlan, recovered any) ScenarioResult {
	var reason string
	if bf, ok := recovered.(*plan.BackendFatal); ok {
		reason = bf.Error()
	} else {
		reason = fmt.Sprintf("backend fatal: %v", recovered)
	}

	tests := make([]TestResult, len(sp.Tests))
	for i, tp := range sp.Tests {
		tests[i] = TestResult{ID: tp.ID, Description: tp.Description, Status: "failed", Reason: reason}
	}
	return ScenarioResult{Name: sp.Name, Tests: tests}
}
