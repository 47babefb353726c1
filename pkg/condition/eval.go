// Package condition evaluates a then/given/when predicate against already
// collected World state. Every kind that only inspects buffered terminal
// output, HTTP responses, or captured variables is evaluated here directly,
// the way assertions.Evaluate dispatches per assertion type. The handful of
// kinds that require a live filesystem/port/service probe are routed
// through the IOProbe the engine wires in, so this package never imports
// os/net itself.
package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/teststate"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

const maxActualLen = 200

// ansiEscape strips terminal color/cursor escape sequences before any
// content-based condition inspects a buffer, matching terminal output as a
// user would actually read it rather than its raw byte stream.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*[a-zA-Z]")

func stripANSI(s string) string { return ansiEscape.ReplaceAllString(s, "") }

// Result is a typed, human-readable outcome, plus an optional captured
// value for kinds that produce one (output_matches/json_path .../as;
// read_file-style captures live in pkg/action instead).
type Result struct {
	Kind     lang.ConditionKind
	Passed   bool
	Message  string
	Capture  *value.Value
}

// IOProbe bundles the side-effecting lookups that filesystem/port/service
// conditions need. The engine supplies these from pkg/backend/filesystem
// and pkg/backend/system; Evaluate itself performs no I/O.
type IOProbe struct {
	FileExists       func(path string) bool
	DirExists        func(path string) bool
	FileContains     func(path, substr string) (bool, error)
	FileSize         func(path string) (int64, error)
	PortListening    func(port int) bool
	ServiceRunning   func(name string) bool
	ServiceInstalled func(name string) bool
}

// Evaluate checks one condition against the current World and test-state
// table. waitElapsed is the number of seconds elapsed since the current
// block was entered (see teststate.Tracker.BlockEnteredAt), used only by
// the wait_at_least/wait_at_most kinds.
func Evaluate(c *lang.Condition, w *world.World, states map[string]teststate.State, waitElapsed float64, io IOProbe) (*Result, error) {
	arg, err := w.Vars.Substitute(c.Arg)
	if err != nil {
		return nil, err
	}
	path, err := w.Vars.Substitute(c.Path)
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case lang.CondWaitAtLeast:
		return boolResult(c.Kind, waitElapsed >= c.DurationSec, fmt.Sprintf("elapsed %.3fs >= %.3fs", waitElapsed, c.DurationSec)), nil
	case lang.CondWaitAtMost:
		return boolResult(c.Kind, waitElapsed <= c.DurationSec, fmt.Sprintf("elapsed %.3fs <= %.3fs", waitElapsed, c.DurationSec)), nil

	case lang.CondTestCanStart:
		return boolResult(c.Kind, true, "no dependency declared"), nil
	case lang.CondTestHasSucceeded:
		passed := states[path] == teststate.Passed
		return boolResult(c.Kind, passed, fmt.Sprintf("test %q state is %s", path, states[path])), nil

	case lang.CondLastCommandSucceeded:
		return boolResult(c.Kind, w.Terminal.Have && w.Terminal.ExitCode == 0, fmt.Sprintf("exit code %d", w.Terminal.ExitCode)), nil
	case lang.CondLastCommandFailed:
		return boolResult(c.Kind, w.Terminal.Have && w.Terminal.ExitCode != 0, fmt.Sprintf("exit code %d", w.Terminal.ExitCode)), nil
	case lang.CondExitCodeIs:
		want := int(c.Number)
		return boolResult(c.Kind, w.Terminal.Have && w.Terminal.ExitCode == want, fmt.Sprintf("exit code %d, want %d", w.Terminal.ExitCode, want)), nil

	case lang.CondOutputContains:
		return stringResult(c.Kind, terminalContent(w), arg, strings.Contains(terminalContent(w), arg)), nil
	case lang.CondStderrContains:
		return stringResult(c.Kind, w.Terminal.Stderr, arg, strings.Contains(w.Terminal.Stderr, arg)), nil
	case lang.CondOutputStartsWith:
		return stringResult(c.Kind, terminalContent(w), arg, strings.HasPrefix(terminalContent(w), arg)), nil
	case lang.CondOutputEndsWith:
		return stringResult(c.Kind, terminalContent(w), arg, strings.HasSuffix(terminalContent(w), arg)), nil
	case lang.CondOutputEquals:
		return stringResult(c.Kind, terminalContent(w), arg, terminalContent(w) == arg), nil
	case lang.CondOutputMatches:
		return evalRegexCapture(c.Kind, terminalContent(w), arg)
	case lang.CondOutputIsValidJSON:
		var v any
		err := json.Unmarshal([]byte(terminalContent(w)), &v)
		return boolResult(c.Kind, err == nil, jsonValidityMessage(err)), nil
	case lang.CondJSONOutputHasPath:
		_, err := navigateJSONPath(terminalContent(w), path)
		return boolResult(c.Kind, err == nil, pathMessage(path, err)), nil
	case lang.CondStdoutIsEmpty:
		return boolResult(c.Kind, w.Terminal.Stdout == "", "stdout length "+strconv.Itoa(len(w.Terminal.Stdout))), nil
	case lang.CondStderrIsEmpty:
		return boolResult(c.Kind, w.Terminal.Stderr == "", "stderr length "+strconv.Itoa(len(w.Terminal.Stderr))), nil

	case lang.CondResponseStatusIs:
		want := int(c.Number)
		return boolResult(c.Kind, w.Web.Have && w.Web.Status == want, fmt.Sprintf("status %d, want %d", w.Web.Status, want)), nil
	case lang.CondResponseIsSuccess:
		return boolResult(c.Kind, w.Web.Have && w.Web.Status >= 200 && w.Web.Status < 300, fmt.Sprintf("status %d", w.Web.Status)), nil
	case lang.CondResponseIsError:
		return boolResult(c.Kind, w.Web.Have && w.Web.Status >= 400, fmt.Sprintf("status %d", w.Web.Status)), nil
	case lang.CondResponseStatusIsIn:
		for _, n := range c.Numbers {
			if w.Web.Have && w.Web.Status == int(n) {
				return boolResult(c.Kind, true, fmt.Sprintf("status %d in set", w.Web.Status)), nil
			}
		}
		return boolResult(c.Kind, false, fmt.Sprintf("status %d not in %v", w.Web.Status, c.Numbers)), nil
	case lang.CondResponseTimeIsBelow:
		return boolResult(c.Kind, w.Web.Have && w.Web.Elapsed.Seconds() < c.DurationSec, fmt.Sprintf("elapsed %.3fs, want < %.3fs", w.Web.Elapsed.Seconds(), c.DurationSec)), nil
	case lang.CondResponseBodyContains:
		body := string(w.Web.Body)
		return stringResult(c.Kind, body, arg, strings.Contains(body, arg)), nil
	case lang.CondResponseBodyMatches:
		return evalRegexCapture(c.Kind, string(w.Web.Body), arg)
	case lang.CondResponseBodyEqualsJSON:
		return evalJSONEquals(string(w.Web.Body), arg, c.IgnoreFields)
	case lang.CondJSONBodyHasPath:
		_, err := navigateJSONPath(string(w.Web.Body), path)
		return boolResult(c.Kind, err == nil, pathMessage(path, err)), nil
	case lang.CondJSONPathAtEquals:
		got, err := navigateJSONPath(string(w.Web.Body), path)
		if err != nil {
			return boolResult(c.Kind, false, pathMessage(path, err)), nil
		}
		gotStr := fmt.Sprintf("%v", got)
		return boolResult(c.Kind, gotStr == arg, fmt.Sprintf("%s = %q, want %q", path, gotStr, arg)), nil
	case lang.CondJSONPathAtCapture:
		got, err := navigateJSONPath(string(w.Web.Body), path)
		if err != nil {
			return boolResult(c.Kind, false, pathMessage(path, err)), nil
		}
		captured := jsonToValue(got)
		return &Result{Kind: c.Kind, Passed: true, Message: fmt.Sprintf("captured %s", path), Capture: &captured}, nil
	case lang.CondJSONResponseIsString, lang.CondJSONResponseIsNumber, lang.CondJSONResponseIsArray, lang.CondJSONResponseIsObject:
		got, err := navigateJSONPath(string(w.Web.Body), path)
		if err != nil {
			return boolResult(c.Kind, false, pathMessage(path, err)), nil
		}
		return boolResult(c.Kind, matchesJSONShape(c.Kind, got), fmt.Sprintf("%s has type %T", path, got)), nil
	case lang.CondJSONResponseHasSize:
		got, err := navigateJSONPath(string(w.Web.Body), path)
		if err != nil {
			return boolResult(c.Kind, false, pathMessage(path, err)), nil
		}
		size, ok := jsonSize(got)
		want := int(c.Number)
		return boolResult(c.Kind, ok && size == want, fmt.Sprintf("%s has size %d, want %d", path, size, want)), nil

	case lang.CondFileExists:
		return boolResult(c.Kind, io.FileExists(path), path), nil
	case lang.CondFileDoesNotExist:
		return boolResult(c.Kind, !io.FileExists(path), path), nil
	case lang.CondDirExists:
		return boolResult(c.Kind, io.DirExists(path), path), nil
	case lang.CondDirDoesNotExist:
		return boolResult(c.Kind, !io.DirExists(path), path), nil
	case lang.CondFileContains:
		ok, err := io.FileContains(path, arg)
		if err != nil {
			return boolResult(c.Kind, false, err.Error()), nil
		}
		return boolResult(c.Kind, ok, fmt.Sprintf("%s contains %q", path, arg)), nil
	case lang.CondFileIsEmpty:
		size, err := io.FileSize(path)
		return boolResult(c.Kind, err == nil && size == 0, fmt.Sprintf("%s size %d", path, size)), nil
	case lang.CondFileIsNotEmpty:
		size, err := io.FileSize(path)
		return boolResult(c.Kind, err == nil && size > 0, fmt.Sprintf("%s size %d", path, size)), nil

	case lang.CondPortIsListening:
		port := int(c.Number)
		return boolResult(c.Kind, io.PortListening(port), fmt.Sprintf("port %d", port)), nil
	case lang.CondPortIsClosed:
		port := int(c.Number)
		return boolResult(c.Kind, !io.PortListening(port), fmt.Sprintf("port %d", port)), nil
	case lang.CondServiceIsRunning:
		return boolResult(c.Kind, io.ServiceRunning(arg), arg), nil
	case lang.CondServiceIsStopped:
		return boolResult(c.Kind, !io.ServiceRunning(arg), arg), nil
	case lang.CondServiceIsInstalled:
		return boolResult(c.Kind, io.ServiceInstalled(arg), arg), nil

	default:
		return nil, fmt.Errorf("condition kind %q has no evaluator", c.Kind)
	}
}

// terminalContent applies the synchronous-result-wins-over-async-buffer
// precedence: a one-shot Terminal run's captured stdout takes priority over
// the persistent session's running combined buffer when both are present.
func terminalContent(w *world.World) string {
	if w.Terminal.Stdout != "" {
		return stripANSI(w.Terminal.Stdout)
	}
	return stripANSI(w.Terminal.Combined)
}

func boolResult(kind lang.ConditionKind, passed bool, detail string) *Result {
	return &Result{Kind: kind, Passed: passed, Message: detail}
}

func stringResult(kind lang.ConditionKind, actual, expected string, passed bool) *Result {
	msg := fmt.Sprintf("%q vs %q", truncate(actual, maxActualLen), expected)
	return &Result{Kind: kind, Passed: passed, Message: msg}
}

// evalRegexCapture matches pattern against content and, when the pattern
// has a capturing group, surfaces group 1 as this Result's Capture.
// Evaluate does not mutate World, and nothing clears the terminal output
// after a capture, so a later output_matches in the same test is matched
// against the same command output.
func evalRegexCapture(kind lang.ConditionKind, content, pattern string) (*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &Result{Kind: kind, Passed: false, Message: fmt.Sprintf("invalid regex %q: %v", pattern, err)}, nil
	}
	m := re.FindStringSubmatch(content)
	if m == nil {
		return &Result{Kind: kind, Passed: false, Message: fmt.Sprintf("no match for /%s/", pattern)}, nil
	}
	res := &Result{Kind: kind, Passed: true, Message: fmt.Sprintf("matched /%s/", pattern)}
	if len(m) > 1 {
		v := value.String(m[1])
		res.Capture = &v
	}
	return res, nil
}

func evalJSONEquals(body, expected string, ignoreFields []string) (*Result, error) {
	var got, want any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		return &Result{Kind: lang.CondResponseBodyEqualsJSON, Passed: false, Message: fmt.Sprintf("invalid JSON body: %v", err)}, nil
	}
	if err := json.Unmarshal([]byte(expected), &want); err != nil {
		return &Result{Kind: lang.CondResponseBodyEqualsJSON, Passed: false, Message: fmt.Sprintf("invalid expected JSON: %v", err)}, nil
	}
	for _, f := range ignoreFields {
		stripField(got, f)
		stripField(want, f)
	}
	passed := jsonDeepEqual(got, want)
	return &Result{Kind: lang.CondResponseBodyEqualsJSON, Passed: passed, Message: "structural JSON comparison"}, nil
}

// stripField deletes a top-level key from an object in place, used to
// implement ignore_fields before comparison.
func stripField(v any, field string) {
	if m, ok := v.(map[string]any); ok {
		delete(m, field)
	}
}

func jsonDeepEqual(a, b any) bool {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !jsonDeepEqual(av, bv) {
				return false
			}
		}
		return true
	}
	al, aok := a.([]any)
	bl, bok := b.([]any)
	if aok && bok {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !jsonDeepEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

func jsonValidityMessage(err error) string {
	if err == nil {
		return "valid JSON"
	}
	return err.Error()
}

func pathMessage(path string, err error) string {
	if err == nil {
		return path + " present"
	}
	return fmt.Sprintf("%s: %v", path, err)
}

func jsonToValue(v any) value.Value {
	switch t := v.(type) {
	case string:
		return value.String(t)
	case float64:
		return value.Number(t)
	case bool:
		return value.Boolean(t)
	default:
		b, _ := json.Marshal(t)
		return value.String(string(b))
	}
}

func matchesJSONShape(kind lang.ConditionKind, v any) bool {
	switch kind {
	case lang.CondJSONResponseIsString:
		_, ok := v.(string)
		return ok
	case lang.CondJSONResponseIsNumber:
		_, ok := v.(float64)
		return ok
	case lang.CondJSONResponseIsArray:
		_, ok := v.([]any)
		return ok
	case lang.CondJSONResponseIsObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}

func jsonSize(v any) (int, bool) {
	switch t := v.(type) {
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	case string:
		return len(t), true
	default:
		return 0, false
	}
}

// navigateJSONPath walks a dot-notation path with optional [index] array
// steps, e.g. "items[0].name". Unrooted (no leading "$.") paths are
// accepted directly, matching the grammar's bare path-string convention.
func navigateJSONPath(jsonText, path string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonText), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return data, nil
	}

	current := data
	for _, part := range strings.Split(path, ".") {
		name, indices, err := splitIndices(part)
		if err != nil {
			return nil, err
		}
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %q, got %T", name, current)
			}
			v, exists := m[name]
			if !exists {
				return nil, fmt.Errorf("key %q not found", name)
			}
			current = v
		}
		for _, idx := range indices {
			l, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array for index %d, got %T", idx, current)
			}
			if idx < 0 || idx >= len(l) {
				return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(l))
			}
			current = l[idx]
		}
	}
	return current, nil
}

// splitIndices splits a path segment like "items[0][1]" into its bare name
// and the sequence of bracketed indices.
func splitIndices(segment string) (string, []int, error) {
	br := strings.IndexByte(segment, '[')
	if br < 0 {
		return segment, nil, nil
	}
	name := segment[:br]
	rest := segment[br:]
	var indices []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("malformed path segment %q", segment)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated index in %q", segment)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("non-numeric index in %q", segment)
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return name, indices, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
