// Package world implements the per-scenario mutable state a scenario
// engine owns exclusively: variable store, last terminal/HTTP results,
// accumulated HTTP headers/cookies, and the succeeded-test set.
package world

import (
	"time"

	"github.com/choreo-lang/choreo/pkg/value"
)

// TerminalResult records the outcome of the most recent Terminal run.
// Have is false until the first run completes ("none yet" per the data
// model).
type TerminalResult struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
	Have     bool
	Drained  bool // the owning command has exited and its PTY stream is fully read
}

// WebResponse records the outcome of the most recent Web HTTP call.
type WebResponse struct {
	Status  int
	Headers map[string][]string
	Body    []byte
	Elapsed time.Duration
	Have    bool
}

// World is created fresh for every scenario and discarded at scenario end;
// it never crosses a scenario boundary, which is what keeps parallel
// scenarios isolated from each other.
type World struct {
	Vars          *value.Store
	Terminal      TerminalResult
	Web           WebResponse
	Headers       map[string]string
	Cookies       map[string]string
	Succeeded     map[string]bool
	Failed        map[string]bool
	ScenarioStart time.Time
}

// New constructs a fresh World from the plan's initial variable store. The
// store is cloned so mutations never leak back into the plan or into a
// sibling parallel scenario's world.
func New(initial *value.Store) *World {
	return &World{
		Vars:          initial.Clone(),
		Headers:       make(map[string]string),
		Cookies:       make(map[string]string),
		Succeeded:     make(map[string]bool),
		Failed:        make(map[string]bool),
		ScenarioStart: time.Now(),
	}
}

func (w *World) MarkSucceeded(testID string) { w.Succeeded[testID] = true }
func (w *World) MarkFailed(testID string)     { w.Failed[testID] = true }

func (w *World) HasSucceeded(testID string) bool { return w.Succeeded[testID] }
func (w *World) HasFailed(testID string) bool    { return w.Failed[testID] }

// ApplyCaptures commits a deferred-mutation list to the variable store.
// Captures are collected during condition evaluation and applied only when
// the owning block transitions to Pass.
func (w *World) ApplyCaptures(captures map[string]value.Value) {
	for name, v := range captures {
		w.Vars.Set(name, v)
	}
}
