// Package engine drives a loaded plan.Plan to completion: one tick loop
// per scenario advancing every test through its given/when/then state
// machine, and a top-level scheduler running parallel scenarios
// concurrently and sequential ones in declaration order.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/teststate"
	"github.com/choreo-lang/choreo/pkg/tracelog"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

// tickInterval is how often a scenario re-evaluates every non-terminal
// test's current block.
const tickInterval = 20 * time.Millisecond

// pollUntilTimeout holds condition kinds whose false reading is never a
// direct failure: they keep being retried every tick until the scenario
// timeout collapses them, because the world state they probe (wall clock,
// filesystem, a port, a service) can change independently of anything
// this test itself dispatches.
var pollUntilTimeout = map[lang.ConditionKind]bool{
	lang.CondWaitAtLeast:        true,
	lang.CondFileExists:         true,
	lang.CondFileDoesNotExist:   true,
	lang.CondDirExists:          true,
	lang.CondDirDoesNotExist:    true,
	lang.CondFileContains:       true,
	lang.CondFileIsEmpty:        true,
	lang.CondFileIsNotEmpty:     true,
	lang.CondPortIsListening:    true,
	lang.CondPortIsClosed:       true,
	lang.CondServiceIsRunning:   true,
	lang.CondServiceIsStopped:   true,
	lang.CondServiceIsInstalled: true,
}

// terminalGatedKinds wait for a command to finish (w.Terminal.Have) before
// a false reading becomes final; the underlying buffer cannot change
// again until the next run action, so there's nothing to gain by holding
// Pending once a result has arrived.
var terminalGatedKinds = map[lang.ConditionKind]bool{
	lang.CondLastCommandSucceeded: true,
	lang.CondLastCommandFailed:    true,
	lang.CondExitCodeIs:           true,
	lang.CondOutputContains:       true,
	lang.CondStderrContains:       true,
	lang.CondOutputStartsWith:     true,
	lang.CondOutputEndsWith:       true,
	lang.CondOutputEquals:         true,
	lang.CondOutputMatches:        true,
	lang.CondOutputIsValidJSON:    true,
	lang.CondJSONOutputHasPath:    true,
	lang.CondStdoutIsEmpty:        true,
	lang.CondStderrIsEmpty:        true,
}

// webGatedKinds wait for a recorded HTTP response (w.Web.Have) before a
// false reading becomes final.
var webGatedKinds = map[lang.ConditionKind]bool{
	lang.CondResponseStatusIs:       true,
	lang.CondResponseIsSuccess:      true,
	lang.CondResponseIsError:        true,
	lang.CondResponseStatusIsIn:     true,
	lang.CondResponseTimeIsBelow:    true,
	lang.CondResponseBodyContains:   true,
	lang.CondResponseBodyMatches:    true,
	lang.CondResponseBodyEqualsJSON: true,
	lang.CondJSONBodyHasPath:        true,
	lang.CondJSONPathAtEquals:       true,
	lang.CondJSONPathAtCapture:      true,
	lang.CondJSONResponseIsString:   true,
	lang.CondJSONResponseIsNumber:   true,
	lang.CondJSONResponseIsArray:    true,
	lang.CondJSONResponseIsObject:   true,
	lang.CondJSONResponseHasSize:    true,
}

// isPending reports whether a Result with Passed=false should be retried
// next tick rather than collapsed into a terminal Fail right away.
// test_has_succeeded always reports pending here: the engine rules out
// the failed/skipped-dependency case separately, before Evaluate ever
// runs, so any other outcome for that kind means "not yet, keep waiting."
func isPending(kind lang.ConditionKind, w *world.World) bool {
	switch {
	case kind == lang.CondTestHasSucceeded:
		return true
	case terminalGatedKinds[kind]:
		return !w.Terminal.Have
	case webGatedKinds[kind]:
		return !w.Web.Have
	default:
		return pollUntilTimeout[kind]
	}
}

// runningTest pairs a fully-expanded test with its live state tracker.
type runningTest struct {
	test      plan.TestPlan
	tracker   *teststate.Tracker
	startedAt time.Time
	endedAt   time.Time
}

func durationOf(rt *runningTest) time.Duration {
	if rt.startedAt.IsZero() || rt.endedAt.IsZero() {
		return 0
	}
	return rt.endedAt.Sub(rt.startedAt)
}

// Scenario drives one plan.ScenarioPlan's tests through their state
// machines, ticking every non-terminal test once per loop iteration until
// all reach a terminal state or the scenario timeout elapses.
type Scenario struct {
	plan     plan.ScenarioPlan
	settings plan.Settings
	world    *world.World
	backends action.Backends
	probe    condition.IOProbe
	trace    *tracelog.Writer
	tests    []*runningTest
}

// NewScenario constructs a scenario runner over a fresh World and the
// given backend set. trace may be nil to disable trace emission.
func NewScenario(sp plan.ScenarioPlan, settings plan.Settings, w *world.World, b action.Backends, probe condition.IOProbe, trace *tracelog.Writer) *Scenario {
	tests := make([]*runningTest, len(sp.Tests))
	for i, tp := range sp.Tests {
		tests[i] = &runningTest{test: tp, tracker: teststate.NewTracker(tp.ID)}
	}
	return &Scenario{plan: sp, settings: settings, world: w, backends: b, probe: probe, trace: trace, tests: tests}
}

// Run drives every test to a terminal state and returns the scenario's
// result. It never returns an error: per-test failures live in the
// returned result, and a hung test is bounded by the scenario timeout
// rather than propagated as a Go error.
func (s *Scenario) Run(ctx context.Context) ScenarioResult {
	start := time.Now()
	s.emitScenarioStart()

	deadline := start.Add(time.Duration(s.settings.TimeoutSeconds * float64(time.Second)))
	tick := 0
	for {
		if s.allTerminal() {
			break
		}
		if time.Now().After(deadline) {
			s.timeoutNonTerminal()
			break
		}

		states := s.stateSnapshot()
		stopped := false
		for _, rt := range s.tests {
			if rt.tracker.State.IsTerminal() {
				continue
			}
			s.step(ctx, rt, states)
			if s.settings.StopOnFailure && rt.tracker.State == teststate.Failed {
				s.skipNonTerminal("a prior test failed and stop_on_failure is set")
				stopped = true
				break
			}
		}
		s.emitTick(tick)
		tick++
		if stopped || s.allTerminal() {
			break
		}

		select {
		case <-ctx.Done():
			s.timeoutNonTerminal()
			return s.finish(start)
		case <-time.After(tickInterval):
		}
	}
	return s.finish(start)
}

func (s *Scenario) finish(start time.Time) ScenarioResult {
	duration := time.Since(start)
	results := make([]TestResult, len(s.tests))
	for i, rt := range s.tests {
		results[i] = TestResult{
			ID:          rt.test.ID,
			Description: rt.test.Description,
			Status:      statusString(rt.tracker.State),
			Reason:      rt.tracker.Reason,
			Duration:    durationOf(rt),
		}
	}
	after := s.runAfter(context.Background())
	failures := 0
	for _, r := range results {
		if r.Status == "failed" {
			failures++
		}
	}
	s.emitScenarioComplete(duration, len(results), failures)
	return ScenarioResult{Name: s.plan.Name, Tests: results, After: after, Duration: duration}
}

func statusString(st teststate.State) string {
	switch st {
	case teststate.Passed:
		return "passed"
	case teststate.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

func (s *Scenario) allTerminal() bool {
	for _, rt := range s.tests {
		if !rt.tracker.State.IsTerminal() {
			return false
		}
	}
	return true
}

func (s *Scenario) stateSnapshot() map[string]teststate.State {
	m := make(map[string]teststate.State, len(s.tests))
	for _, rt := range s.tests {
		m[rt.test.ID] = rt.tracker.State
	}
	return m
}

// blockedOn reports whether any test_has_succeeded dependency among steps
// names a test that has already turned Failed or Skipped. Such a
// dependency can never resolve to Passed, so the waiting test is skipped
// instead of left polling a condition that will never come true.
func (s *Scenario) blockedOn(steps []lang.Step, states map[string]teststate.State) (string, bool) {
	for _, step := range steps {
		c := step.Condition
		if c == nil || c.Kind != lang.CondTestHasSucceeded {
			continue
		}
		if st := states[c.Path]; st == teststate.Failed || st == teststate.Skipped {
			return c.Path, true
		}
	}
	return "", false
}

func (s *Scenario) step(ctx context.Context, rt *runningTest, states map[string]teststate.State) {
	switch rt.tracker.State {
	case teststate.Pending:
		if dep, blocked := s.blockedOn(rt.test.Given, states); blocked {
			s.markSkipped(rt, fmt.Sprintf("dependency %q did not succeed", dep))
			return
		}
		now := time.Now()
		rt.startedAt = now
		rt.tracker.EnterGiven(now)
		s.emitStateChange(rt, "pending")
		if err := s.runActions(ctx, rt, "given", rt.test.Given); err != nil {
			s.markFailed(rt, err.Error())
			return
		}
		s.advanceGiven(ctx, rt, states)

	case teststate.GivenActive:
		if dep, blocked := s.blockedOn(rt.test.Given, states); blocked {
			s.markSkipped(rt, fmt.Sprintf("dependency %q did not succeed", dep))
			return
		}
		s.advanceGiven(ctx, rt, states)

	case teststate.ThenActive:
		s.advanceThen(rt, states)
	}
}

// advanceGiven evaluates the given block's conditions in order. The first
// one that isn't Passed either holds the test at GivenActive (Pending) or
// fails it outright; once every condition passes, the when block's
// actions execute once and the test moves into ThenActive.
func (s *Scenario) advanceGiven(ctx context.Context, rt *runningTest, states map[string]teststate.State) {
	waitElapsed := time.Since(rt.tracker.BlockEnteredAt()).Seconds()
	captures := make(map[string]value.Value)
	for _, step := range rt.test.Given {
		c := step.Condition
		if c == nil {
			continue
		}
		res, err := condition.Evaluate(c, s.world, states, waitElapsed, s.probe)
		if err != nil {
			s.emitConditionEvaluated(rt, "given", c, nil, err)
			s.markFailed(rt, err.Error())
			return
		}
		s.emitConditionEvaluated(rt, "given", c, res, nil)
		if !res.Passed {
			if isPending(c.Kind, s.world) {
				return
			}
			s.markFailed(rt, res.Message)
			return
		}
		if res.Capture != nil && c.CaptureAs != "" {
			captures[c.CaptureAs] = *res.Capture
		}
	}

	s.world.ApplyCaptures(captures)
	rt.tracker.EnterWhen()
	if err := s.runActions(ctx, rt, "when", rt.test.When); err != nil {
		s.markFailed(rt, err.Error())
		return
	}
	rt.tracker.EnterThen(time.Now())
	s.emitStateChange(rt, "given_active")
}

// advanceThen evaluates the then block's conditions every tick until all
// pass (Passed), one fails outright (Failed), or the scenario times out.
func (s *Scenario) advanceThen(rt *runningTest, states map[string]teststate.State) {
	waitElapsed := time.Since(rt.tracker.BlockEnteredAt()).Seconds()
	captures := make(map[string]value.Value)
	for _, step := range rt.test.Then {
		c := step.Condition
		if c == nil {
			continue
		}
		res, err := condition.Evaluate(c, s.world, states, waitElapsed, s.probe)
		if err != nil {
			s.emitConditionEvaluated(rt, "then", c, nil, err)
			s.markFailed(rt, err.Error())
			return
		}
		s.emitConditionEvaluated(rt, "then", c, res, nil)
		if !res.Passed {
			if isPending(c.Kind, s.world) {
				return
			}
			s.markFailed(rt, res.Message)
			return
		}
		if res.Capture != nil && c.CaptureAs != "" {
			captures[c.CaptureAs] = *res.Capture
		}
	}

	s.world.ApplyCaptures(captures)
	s.world.MarkSucceeded(rt.test.ID)
	rt.tracker.EnterPassed()
	rt.endedAt = time.Now()
	s.emitStateChange(rt, "then_active")
}

func (s *Scenario) runActions(ctx context.Context, rt *runningTest, block string, steps []lang.Step) error {
	for _, step := range steps {
		if step.Action == nil {
			continue
		}
		err := action.Dispatch(ctx, step.Action, s.world, s.backends)
		s.emitActionExecuted(rt, block, step.Action, err)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) markFailed(rt *runningTest, reason string) {
	from := rt.tracker.State.String()
	rt.tracker.EnterFailed(reason)
	s.world.MarkFailed(rt.test.ID)
	rt.endedAt = time.Now()
	s.emitStateChange(rt, from)
}

func (s *Scenario) markSkipped(rt *runningTest, reason string) {
	from := rt.tracker.State.String()
	rt.tracker.EnterSkipped(reason)
	rt.endedAt = time.Now()
	s.emitStateChange(rt, from)
}

// timeoutNonTerminal collapses every still-non-terminal test once the
// scenario timeout elapses. A test already inside its then block becomes
// Failed (its conditions were pending, not absent); anything earlier
// becomes TimedOut.
func (s *Scenario) timeoutNonTerminal() {
	for _, rt := range s.tests {
		if rt.tracker.State.IsTerminal() {
			continue
		}
		from := rt.tracker.State.String()
		if rt.tracker.State == teststate.ThenActive {
			rt.tracker.EnterFailed("condition still pending at scenario timeout")
			s.world.MarkFailed(rt.test.ID)
		} else {
			rt.tracker.EnterTimedOut()
		}
		rt.endedAt = time.Now()
		s.emitStateChange(rt, from)
	}
}

// skipNonTerminal marks every still-non-terminal test Skipped, used when
// stop_on_failure aborts the rest of the scenario.
func (s *Scenario) skipNonTerminal(reason string) {
	for _, rt := range s.tests {
		if rt.tracker.State.IsTerminal() {
			continue
		}
		from := rt.tracker.State.String()
		rt.tracker.EnterSkipped(reason)
		rt.endedAt = time.Now()
		s.emitStateChange(rt, from)
	}
}

// runAfter executes a scenario's after block best-effort: every action
// runs regardless of an earlier one failing, and failures are recorded
// per-step rather than propagated to any test's status.
func (s *Scenario) runAfter(ctx context.Context) []AfterOutcome {
	outcomes := make([]AfterOutcome, 0, len(s.plan.After))
	for _, step := range s.plan.After {
		if step.Action == nil {
			continue
		}
		err := action.Dispatch(ctx, step.Action, s.world, s.backends)
		status, reason := "passed", ""
		if err != nil {
			status = "failed"
			reason = err.Error()
		}
		outcomes = append(outcomes, AfterOutcome{Name: string(step.Action.Kind), Status: status, Reason: reason})
	}
	return outcomes
}

func (s *Scenario) emitScenarioStart() {
	if s.trace != nil {
		s.trace.EmitScenarioStart(s.plan.Name)
	}
}

func (s *Scenario) emitScenarioComplete(d time.Duration, tests, failures int) {
	if s.trace != nil {
		s.trace.EmitScenarioComplete(s.plan.Name, d, tests, failures)
	}
}

func (s *Scenario) emitTick(tick int) {
	if s.trace != nil {
		s.trace.EmitTick(s.plan.Name, tick)
	}
}

func (s *Scenario) emitStateChange(rt *runningTest, from string) {
	if s.trace == nil {
		return
	}
	s.trace.EmitTestStateChange(s.plan.Name, rt.test.ID, from, rt.tracker.State.String(), rt.tracker.Reason)
}

func (s *Scenario) emitActionExecuted(rt *runningTest, block string, a *lang.Action, err error) {
	if s.trace != nil {
		s.trace.EmitActionExecuted(s.plan.Name, rt.test.ID, block, string(a.Kind), err)
	}
}

func (s *Scenario) emitConditionEvaluated(rt *runningTest, block string, c *lang.Condition, res *condition.Result, err error) {
	if s.trace == nil {
		return
	}
	verdict, message := "error", ""
	switch {
	case err != nil:
		message = err.Error()
	case res != nil:
		message = res.Message
		switch {
		case res.Passed:
			verdict = "pass"
		case isPending(c.Kind, s.world):
			verdict = "pending"
		default:
			verdict = "fail"
		}
	}
	s.trace.EmitConditionEvaluated(s.plan.Name, rt.test.ID, block, string(c.Kind), verdict, message)
}
