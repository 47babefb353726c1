package condition

import (
	"testing"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/teststate"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

func noopIO() IOProbe {
	return IOProbe{
		FileExists:       func(string) bool { return false },
		DirExists:        func(string) bool { return false },
		FileContains:     func(string, string) (bool, error) { return false, nil },
		FileSize:         func(string) (int64, error) { return 0, nil },
		PortListening:    func(int) bool { return false },
		ServiceRunning:   func(string) bool { return false },
		ServiceInstalled: func(string) bool { return false },
	}
}

func TestEvaluateLastCommandSucceeded(t *testing.T) {
	w := world.New(value.NewStore())
	w.Terminal = world.TerminalResult{Have: true, ExitCode: 0}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondLastCommandSucceeded}, w, nil, 0, noopIO())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestEvaluateOutputContainsUsesSyncStdoutFirst(t *testing.T) {
	w := world.New(value.NewStore())
	w.Terminal = world.TerminalResult{Have: true, Stdout: "hello sync", Combined: "hello async"}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondOutputContains, Arg: "sync"}, w, nil, 0, noopIO())
	if err != nil || !res.Passed {
		t.Fatalf("expected pass using sync stdout, got %+v err=%v", res, err)
	}
	res, err = Evaluate(&lang.Condition{Kind: lang.CondOutputContains, Arg: "async"}, w, nil, 0, noopIO())
	if err != nil || res.Passed {
		t.Fatalf("expected fail since sync stdout takes precedence, got %+v err=%v", res, err)
	}
}

func TestEvaluateOutputMatchesCapturesGroup(t *testing.T) {
	w := world.New(value.NewStore())
	w.Terminal = world.TerminalResult{Have: true, Stdout: "version: 1.2.3"}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondOutputMatches, Arg: `version: (\d+\.\d+\.\d+)`}, w, nil, 0, noopIO())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Passed || res.Capture == nil || res.Capture.AsString() != "1.2.3" {
		t.Fatalf("expected captured 1.2.3, got %+v", res)
	}
}

func TestEvaluateTestHasSucceeded(t *testing.T) {
	w := world.New(value.NewStore())
	states := map[string]teststate.State{"A": teststate.Passed}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondTestHasSucceeded, Path: "A"}, w, states, 0, noopIO())
	if err != nil || !res.Passed {
		t.Fatalf("expected pass, got %+v err=%v", res, err)
	}
	res, err = Evaluate(&lang.Condition{Kind: lang.CondTestHasSucceeded, Path: "B"}, w, states, 0, noopIO())
	if err != nil || res.Passed {
		t.Fatalf("expected fail for unknown dependency, got %+v err=%v", res, err)
	}
}

func TestEvaluateJSONPathAtCapture(t *testing.T) {
	w := world.New(value.NewStore())
	w.Web = world.WebResponse{Have: true, Status: 200, Body: []byte(`{"user":{"id":42,"name":"ada"}}`)}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondJSONPathAtCapture, Path: "user.id"}, w, nil, 0, noopIO())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Passed || res.Capture == nil {
		t.Fatalf("expected a capture, got %+v", res)
	}
	if n, ok := res.Capture.AsNumber(); !ok || n != 42 {
		t.Fatalf("expected captured number 42, got %+v", res.Capture)
	}
}

func TestEvaluateJSONResponseHasSizeOnArray(t *testing.T) {
	w := world.New(value.NewStore())
	w.Web = world.WebResponse{Have: true, Body: []byte(`{"items":[1,2,3]}`)}
	res, err := Evaluate(&lang.Condition{Kind: lang.CondJSONResponseHasSize, Path: "items", Number: 3}, w, nil, 0, noopIO())
	if err != nil || !res.Passed {
		t.Fatalf("expected size match, got %+v err=%v", res, err)
	}
}

func TestEvaluateResponseBodyEqualsJSONIgnoresFields(t *testing.T) {
	w := world.New(value.NewStore())
	w.Web = world.WebResponse{Have: true, Body: []byte(`{"id":1,"updated_at":"now","name":"x"}`)}
	res, err := Evaluate(&lang.Condition{
		Kind:         lang.CondResponseBodyEqualsJSON,
		Arg:          `{"id":1,"updated_at":"later","name":"x"}`,
		IgnoreFields: []string{"updated_at"},
	}, w, nil, 0, noopIO())
	if err != nil || !res.Passed {
		t.Fatalf("expected equal after ignoring updated_at, got %+v err=%v", res, err)
	}
}

func TestEvaluateWaitAtMost(t *testing.T) {
	w := world.New(value.NewStore())
	res, err := Evaluate(&lang.Condition{Kind: lang.CondWaitAtMost, DurationSec: 2}, w, nil, 1.5, noopIO())
	if err != nil || !res.Passed {
		t.Fatalf("expected pass at 1.5s <= 2s, got %+v err=%v", res, err)
	}
	res, err = Evaluate(&lang.Condition{Kind: lang.CondWaitAtMost, DurationSec: 2}, w, nil, 2.5, noopIO())
	if err != nil || res.Passed {
		t.Fatalf("expected fail at 2.5s <= 2s, got %+v err=%v", res, err)
	}
}

func TestEvaluateFileExistsDelegatesToIOProbe(t *testing.T) {
	w := world.New(value.NewStore())
	io := noopIO()
	io.FileExists = func(path string) bool { return path == "/tmp/x" }
	res, err := Evaluate(&lang.Condition{Kind: lang.CondFileExists, Path: "/tmp/x"}, w, nil, 0, io)
	if err != nil || !res.Passed {
		t.Fatalf("expected pass via probe, got %+v err=%v", res, err)
	}
}
