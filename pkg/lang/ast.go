// Package lang implements the lexer and recursive-descent parser for .chor
// source files, producing the AST the loader (pkg/plan) consumes.
package lang

import "github.com/choreo-lang/choreo/pkg/value"

// ActionKind enumerates every action verb the language supports.
type ActionKind string

const (
	ActPause        ActionKind = "pause"
	ActLog          ActionKind = "log"
	ActUuid         ActionKind = "uuid"
	ActTimestamp    ActionKind = "timestamp"
	ActRun          ActionKind = "run"
	ActCreateFile   ActionKind = "create_file"
	ActCreateDir    ActionKind = "create_dir"
	ActDeleteFile   ActionKind = "delete_file"
	ActDeleteDir    ActionKind = "delete_dir"
	ActReadFile     ActionKind = "read_file"
	ActSetHeader    ActionKind = "set_header"
	ActClearHeader  ActionKind = "clear_header"
	ActClearHeaders ActionKind = "clear_headers"
	ActSetCookie    ActionKind = "set_cookie"
	ActClearCookie  ActionKind = "clear_cookie"
	ActClearCookies ActionKind = "clear_cookies"
	ActHTTPGet      ActionKind = "http_get"
	ActHTTPPost     ActionKind = "http_post"
	ActHTTPPut      ActionKind = "http_put"
	ActHTTPPatch    ActionKind = "http_patch"
	ActHTTPDelete   ActionKind = "http_delete"
)

// Action is one side-effecting step. Fields beyond Actor/Kind are populated
// selectively per kind: one struct shape with only the fields relevant to
// the active variant populated.
type Action struct {
	Actor       string
	Kind        ActionKind
	Arg1        string // command / path / url / message / key / header name
	Arg2        string // content / body / header or cookie value
	CaptureAs   string // "as NAME" target, when applicable
	DurationSec float64
	Line, Col   int
}

// ConditionKind enumerates every condition predicate the language supports.
type ConditionKind string

const (
	CondWaitAtLeast            ConditionKind = "wait_at_least"
	CondWaitAtMost             ConditionKind = "wait_at_most"
	CondTestCanStart           ConditionKind = "test_can_start"
	CondTestHasSucceeded       ConditionKind = "test_has_succeeded"
	CondLastCommandSucceeded   ConditionKind = "last_command_succeeded"
	CondLastCommandFailed      ConditionKind = "last_command_failed"
	CondExitCodeIs             ConditionKind = "exit_code_is"
	CondOutputContains         ConditionKind = "output_contains"
	CondStderrContains         ConditionKind = "stderr_contains"
	CondOutputStartsWith       ConditionKind = "output_starts_with"
	CondOutputEndsWith         ConditionKind = "output_ends_with"
	CondOutputEquals           ConditionKind = "output_equals"
	CondOutputMatches          ConditionKind = "output_matches"
	CondOutputIsValidJSON      ConditionKind = "output_is_valid_json"
	CondJSONOutputHasPath      ConditionKind = "json_output_has_path"
	CondStdoutIsEmpty          ConditionKind = "stdout_is_empty"
	CondStderrIsEmpty          ConditionKind = "stderr_is_empty"
	CondResponseStatusIs       ConditionKind = "response_status_is"
	CondResponseIsSuccess      ConditionKind = "response_is_success"
	CondResponseIsError        ConditionKind = "response_is_error"
	CondResponseStatusIsIn     ConditionKind = "response_status_is_in"
	CondResponseTimeIsBelow    ConditionKind = "response_time_is_below"
	CondResponseBodyContains   ConditionKind = "response_body_contains"
	CondResponseBodyMatches    ConditionKind = "response_body_matches"
	CondResponseBodyEqualsJSON ConditionKind = "response_body_equals_json"
	CondJSONBodyHasPath        ConditionKind = "json_body_has_path"
	CondJSONPathAtEquals       ConditionKind = "json_path_at_equals"
	CondJSONPathAtCapture      ConditionKind = "json_path_at_capture"
	CondJSONResponseIsString   ConditionKind = "json_response_is_a_string"
	CondJSONResponseIsNumber   ConditionKind = "json_response_is_a_number"
	CondJSONResponseIsArray    ConditionKind = "json_response_is_an_array"
	CondJSONResponseIsObject  ConditionKind = "json_response_is_an_object"
	CondJSONResponseHasSize   ConditionKind = "json_response_has_size"
	CondFileExists             ConditionKind = "file_exists"
	CondFileDoesNotExist       ConditionKind = "file_does_not_exist"
	CondDirExists              ConditionKind = "dir_exists"
	CondDirDoesNotExist        ConditionKind = "dir_does_not_exist"
	CondFileContains           ConditionKind = "file_contains"
	CondFileIsEmpty            ConditionKind = "file_is_empty"
	CondFileIsNotEmpty         ConditionKind = "file_is_not_empty"
	CondPortIsListening        ConditionKind = "port_is_listening"
	CondPortIsClosed           ConditionKind = "port_is_closed"
	CondServiceIsRunning       ConditionKind = "service_is_running"
	CondServiceIsStopped       ConditionKind = "service_is_stopped"
	CondServiceIsInstalled     ConditionKind = "service_is_installed"
)

// Condition is one predicate step. As with Action, only the fields relevant
// to Kind are populated.
type Condition struct {
	Actor        string
	Kind         ConditionKind
	Path         string // JSON path / file path / dependency test ID / service name
	Arg          string // text / regex / equality literal
	Number       float64
	Numbers      []float64 // response_status_is_in set
	DurationSec  float64
	CaptureAs    string
	IgnoreFields []string
	Line, Col    int
}

// Step is either an Action, a Condition, or an inlined task invocation
// (resolved away by the loader before the plan reaches the engine).
type Step struct {
	Action    *Action
	Condition *Condition
	TaskCall  *TaskCall
}

// TaskCall references a task declaration by name with positional string
// arguments; the parser accepts `task NAME(args...)` as a step, and the
// loader inlines it into the owning test before execution.
type TaskCall struct {
	Name      string
	Args      []string
	Line, Col int
}

// VarDecl is a top-level `var NAME = value` declaration. List literals are
// string-only.
type VarDecl struct {
	Name  string
	Value value.Value
}

// TaskDecl is a top-level `task NAME(params...) { steps }` declaration.
type TaskDecl struct {
	Name   string
	Params []string
	Body   []Step
}

// TestDecl is one `test ID "description" { given: when: then: }` block.
type TestDecl struct {
	ID          string
	Description string
	Given       []Step
	When        []Step
	Then        []Step
	Line        int
}

// ForEachDecl expands into len(List) TestDecls at load time.
type ForEachDecl struct {
	Var      string
	ListName string
	Template TestDecl
	Line     int
}

// ScenarioEntry is either a plain test or a foreach template, in source
// order.
type ScenarioEntry struct {
	Test    *TestDecl
	ForEach *ForEachDecl
}

// ScenarioDecl is one `[parallel] scenario "name" { ... }` block.
type ScenarioDecl struct {
	Name     string
	Parallel bool
	Entries  []ScenarioEntry
	After    []Step
	Line     int
}

// Settings holds a test file's settings block; nil fields are unset and
// fall back to project config defaults, then to the engine's built-in
// defaults.
type Settings struct {
	TimeoutSeconds   *float64
	StopOnFailure    *bool
	ShellPath        *string
	ReportPath       *string
	ExpectedFailures *int
}

// File is the parsed representation of one .chor source file.
type File struct {
	Feature    string
	Actors     []string
	Settings   Settings
	EnvNames   []string
	Vars       []VarDecl
	Tasks      []TaskDecl
	Background []Step
	Scenarios  []ScenarioDecl
}
