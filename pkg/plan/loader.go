package plan

import (
	"fmt"
	"os"
	"strings"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/value"
)

// knownActors is the closed set of actor facets a step may reference,
// plus the pseudo-actor "Test" used for dependency predicates.
var knownActors = map[string]bool{
	"Terminal":   true,
	"Web":        true,
	"FileSystem": true,
	"System":     true,
	"Test":       true,
}

// Load runs the full loader pipeline over a parsed file: settings
// resolution, env resolution, actor validation, task inlining, foreach
// expansion, background prefixing, and static substitution checks. Config
// supplies project-level defaults for settings the .chor file itself does
// not set.
func Load(f *lang.File, config Settings) (*Plan, error) {
	ld := &loader{file: f}
	return ld.run(config)
}

type loader struct {
	file      *lang.File
	varNames  map[string]bool
	envNames  map[string]bool
	tasks     map[string]lang.TaskDecl
	actorDecl map[string]bool
}

func (ld *loader) run(config Settings) (*Plan, error) {
	ld.varNames = make(map[string]bool)
	ld.envNames = make(map[string]bool)
	ld.tasks = make(map[string]lang.TaskDecl)
	ld.actorDecl = make(map[string]bool)

	for _, a := range ld.file.Actors {
		if !knownActors[a] {
			return nil, &LoadError{Kind: "undeclared_actor", Message: fmt.Sprintf("unknown actor %q", a)}
		}
		ld.actorDecl[a] = true
	}

	initial := value.NewStore()
	for _, v := range ld.file.Vars {
		if ld.varNames[v.Name] {
			return nil, &LoadError{Kind: "duplicate_identifier", Message: fmt.Sprintf("variable %q declared twice", v.Name)}
		}
		ld.varNames[v.Name] = true
		initial.Set(v.Name, v.Value)
	}

	for _, name := range ld.file.EnvNames {
		val, ok := os.LookupEnv(name)
		if !ok {
			return nil, &LoadError{Kind: "missing_env", Message: fmt.Sprintf("required env variable %q is not set", name)}
		}
		ld.envNames[name] = true
		initial.Set(name, value.String(val))
	}

	for _, t := range ld.file.Tasks {
		if _, exists := ld.tasks[t.Name]; exists {
			return nil, &LoadError{Kind: "duplicate_identifier", Message: fmt.Sprintf("task %q declared twice", t.Name)}
		}
		if err := ld.checkTaskNotRecursive(t); err != nil {
			return nil, err
		}
		ld.tasks[t.Name] = t
	}

	settings := mergeSettings(config, ld.file.Settings)

	seenIDs := make(map[string]bool)
	var scenarios []ScenarioPlan
	for _, sc := range ld.file.Scenarios {
		scPlan, err := ld.loadScenario(sc, seenIDs)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scPlan)
	}

	// Validate `Test has_succeeded X` references resolve within the same
	// scenario, after all tests in that scenario are known.
	for _, sc := range scenarios {
		ids := make(map[string]bool, len(sc.Tests))
		for _, t := range sc.Tests {
			ids[t.ID] = true
		}
		for _, t := range sc.Tests {
			for _, blk := range [][]lang.Step{t.Given, t.When, t.Then} {
				for _, step := range blk {
					if step.Condition != nil && step.Condition.Kind == lang.CondTestHasSucceeded {
						if !ids[step.Condition.Path] {
							return nil, &LoadError{Kind: "unknown_test_reference", Message: fmt.Sprintf("test %q references unknown dependency %q", t.ID, step.Condition.Path)}
						}
					}
				}
			}
		}
	}

	return &Plan{
		Feature:     ld.file.Feature,
		Settings:    settings,
		Actors:      ld.actorDecl,
		InitialVars: initial,
		Scenarios:   scenarios,
	}, nil
}

func mergeSettings(config Settings, s lang.Settings) Settings {
	out := config
	if s.TimeoutSeconds != nil {
		out.TimeoutSeconds = *s.TimeoutSeconds
	}
	if s.StopOnFailure != nil {
		out.StopOnFailure = *s.StopOnFailure
	}
	if s.ShellPath != nil {
		out.ShellPath = *s.ShellPath
	}
	if s.ReportPath != nil {
		out.ReportPath = *s.ReportPath
	}
	if s.ExpectedFailures != nil {
		out.ExpectedFailures = *s.ExpectedFailures
	}
	return out
}

func (ld *loader) checkTaskNotRecursive(t lang.TaskDecl) error {
	for _, step := range t.Body {
		if step.TaskCall != nil && step.TaskCall.Name == t.Name {
			return &LoadError{Kind: "recursive_task", Message: fmt.Sprintf("task %q calls itself", t.Name)}
		}
	}
	return nil
}

func (ld *loader) loadScenario(sc lang.ScenarioDecl, seenIDs map[string]bool) (ScenarioPlan, error) {
	scPlan := ScenarioPlan{Name: sc.Name, Parallel: sc.Parallel}

	var templates []lang.TestDecl
	for _, entry := range sc.Entries {
		switch {
		case entry.Test != nil:
			templates = append(templates, *entry.Test)
		case entry.ForEach != nil:
			expanded, err := ld.expandForEach(*entry.ForEach)
			if err != nil {
				return ScenarioPlan{}, err
			}
			templates = append(templates, expanded...)
		}
	}

	for i, td := range templates {
		if i == 0 && len(ld.file.Background) > 0 {
			td.Given = append(append([]lang.Step{}, ld.file.Background...), td.Given...)
		}

		inlined, err := ld.inlineTest(td)
		if err != nil {
			return ScenarioPlan{}, err
		}
		if seenIDs[inlined.ID] {
			return ScenarioPlan{}, &LoadError{Kind: "duplicate_identifier", Message: fmt.Sprintf("test identifier %q is not unique after expansion", inlined.ID)}
		}
		seenIDs[inlined.ID] = true

		if err := ld.checkSubstitutions(inlined); err != nil {
			return ScenarioPlan{}, err
		}
		if err := ld.checkActors(inlined); err != nil {
			return ScenarioPlan{}, err
		}

		scPlan.Tests = append(scPlan.Tests, inlined)
	}

	inlinedAfter, err := ld.inlineSteps(sc.After, nil, "")
	if err != nil {
		return ScenarioPlan{}, err
	}
	for _, step := range inlinedAfter {
		if step.Condition != nil {
			return ScenarioPlan{}, &LoadError{Kind: "mixed_step_kinds", Message: "after block must contain only actions"}
		}
	}
	scPlan.After = inlinedAfter

	return scPlan, nil
}

// expandForEach substitutes the loop variable textually into every string
// position of the template test, including the identifier, producing one
// TestDecl per list element. List literals are string-only.
func (ld *loader) expandForEach(fe lang.ForEachDecl) ([]lang.TestDecl, error) {
	listVal, ok := varByName(ld.file, fe.ListName)
	if !ok {
		return nil, &LoadError{Kind: "unknown_variable", Message: fmt.Sprintf("foreach references undeclared list %q", fe.ListName)}
	}
	items, ok := listVal.AsList()
	if !ok {
		return nil, &LoadError{Kind: "unknown_variable", Message: fmt.Sprintf("%q is not a list", fe.ListName)}
	}

	placeholder := "${" + fe.Var + "}"
	var out []lang.TestDecl
	for _, item := range items {
		itemText := item.AsString()
		out = append(out, substituteTestDecl(fe.Template, placeholder, itemText))
	}
	return out, nil
}

func substituteTestDecl(td lang.TestDecl, placeholder, replacement string) lang.TestDecl {
	out := lang.TestDecl{
		ID:          strings.ReplaceAll(td.ID, placeholder, replacement),
		Description: strings.ReplaceAll(td.Description, placeholder, replacement),
		Line:        td.Line,
	}
	out.Given = substituteSteps(td.Given, placeholder, replacement)
	out.When = substituteSteps(td.When, placeholder, replacement)
	out.Then = substituteSteps(td.Then, placeholder, replacement)
	return out
}

func substituteSteps(steps []lang.Step, placeholder, replacement string) []lang.Step {
	out := make([]lang.Step, len(steps))
	for i, s := range steps {
		out[i] = substituteStep(s, placeholder, replacement)
	}
	return out
}

func substituteStep(s lang.Step, placeholder, replacement string) lang.Step {
	rep := func(v string) string { return strings.ReplaceAll(v, placeholder, replacement) }
	switch {
	case s.Action != nil:
		a := *s.Action
		a.Arg1 = rep(a.Arg1)
		a.Arg2 = rep(a.Arg2)
		return lang.Step{Action: &a}
	case s.Condition != nil:
		c := *s.Condition
		c.Arg = rep(c.Arg)
		c.Path = rep(c.Path)
		if len(c.IgnoreFields) > 0 {
			fields := make([]string, len(c.IgnoreFields))
			for i, f := range c.IgnoreFields {
				fields[i] = rep(f)
			}
			c.IgnoreFields = fields
		}
		return lang.Step{Condition: &c}
	case s.TaskCall != nil:
		tc := *s.TaskCall
		args := make([]string, len(tc.Args))
		for i, a := range tc.Args {
			args[i] = rep(a)
		}
		tc.Args = args
		return lang.Step{TaskCall: &tc}
	default:
		return s
	}
}

// inlineTest resolves every task-call step in a test's three blocks by
// textual substitution of the task's parameters into its body, preserving
// the caller's block kind.
func (ld *loader) inlineTest(td lang.TestDecl) (TestPlan, error) {
	given, err := ld.inlineSteps(td.Given, nil, "given")
	if err != nil {
		return TestPlan{}, err
	}
	when, err := ld.inlineSteps(td.When, nil, "when")
	if err != nil {
		return TestPlan{}, err
	}
	then, err := ld.inlineSteps(td.Then, nil, "then")
	if err != nil {
		return TestPlan{}, err
	}
	if err := requireOnlyActionsOrConditions(when, "when", true); err != nil {
		return TestPlan{}, err
	}
	if err := requireOnlyActionsOrConditions(then, "then", false); err != nil {
		return TestPlan{}, err
	}
	return TestPlan{ID: td.ID, Description: td.Description, Given: given, When: when, Then: then}, nil
}

func requireOnlyActionsOrConditions(steps []lang.Step, block string, actionsOnly bool) error {
	for _, s := range steps {
		if actionsOnly && s.Condition != nil {
			return &LoadError{Kind: "mixed_step_kinds", Message: fmt.Sprintf("%s block must contain only actions", block)}
		}
		if !actionsOnly && s.Action != nil {
			return &LoadError{Kind: "mixed_step_kinds", Message: fmt.Sprintf("%s block must contain only conditions", block)}
		}
	}
	return nil
}

// inlineSteps expands task-call steps in place. seen guards against
// recursion through a chain of task calls (belt-and-braces alongside the
// direct self-call check in checkTaskNotRecursive).
func (ld *loader) inlineSteps(steps []lang.Step, seen map[string]bool, block string) ([]lang.Step, error) {
	var out []lang.Step
	for _, s := range steps {
		if s.TaskCall == nil {
			out = append(out, s)
			continue
		}
		call := s.TaskCall
		if seen[call.Name] {
			return nil, &LoadError{Kind: "recursive_task", Message: fmt.Sprintf("task %q is called recursively", call.Name)}
		}
		task, ok := ld.tasks[call.Name]
		if !ok {
			return nil, &LoadError{Kind: "unknown_variable", Message: fmt.Sprintf("call to undeclared task %q", call.Name)}
		}
		if len(task.Params) != len(call.Args) {
			return nil, &LoadError{Kind: "arity_mismatch", Message: fmt.Sprintf("task %q expects %d arguments, got %d", call.Name, len(task.Params), len(call.Args))}
		}

		body := task.Body
		for i, param := range task.Params {
			placeholder := "${" + param + "}"
			body = substituteSteps(body, placeholder, call.Args[i])
		}

		nextSeen := map[string]bool{call.Name: true}
		for k := range seen {
			nextSeen[k] = true
		}
		inlined, err := ld.inlineSteps(body, nextSeen, block)
		if err != nil {
			return nil, err
		}
		// A task called from `then` must contribute only conditions, and
		// one called from `when` only actions; a task called from `given`
		// may mix, matching given's own rule.
		if block == "when" {
			if err := requireOnlyActionsOrConditions(inlined, "when", true); err != nil {
				return nil, err
			}
		}
		if block == "then" {
			if err := requireOnlyActionsOrConditions(inlined, "then", false); err != nil {
				return nil, err
			}
		}
		out = append(out, inlined...)
	}
	return out, nil
}

// checkActors enforces that every actor referenced by a step in this test
// was declared at the top level.
func (ld *loader) checkActors(t TestPlan) error {
	check := func(steps []lang.Step) error {
		for _, s := range steps {
			var actor string
			switch {
			case s.Action != nil:
				actor = s.Action.Actor
			case s.Condition != nil:
				actor = s.Condition.Actor
			default:
				continue
			}
			if actor == "" || actor == "Test" {
				continue
			}
			if !ld.actorDecl[actor] {
				return &LoadError{Kind: "undeclared_actor", Message: fmt.Sprintf("test %q uses undeclared actor %q", t.ID, actor)}
			}
		}
		return nil
	}
	if err := check(t.Given); err != nil {
		return err
	}
	if err := check(t.When); err != nil {
		return err
	}
	return check(t.Then)
}

// checkSubstitutions verifies every ${NAME} / ${NAME[i]} reference in this
// test's string fields resolves to a declared var, a declared env name, or
// a name captured somewhere in the same test via "as NAME". Static index
// bounds cannot be checked here in general
// (indices may reference runtime lists produced by captures); a literal
// out-of-range index against a var-declared list is still caught.
func (ld *loader) checkSubstitutions(t TestPlan) error {
	known := make(map[string]bool)
	for name := range ld.varNames {
		known[name] = true
	}
	for name := range ld.envNames {
		known[name] = true
	}
	collectCaptures(t.Given, known)
	collectCaptures(t.When, known)
	collectCaptures(t.Then, known)

	check := func(steps []lang.Step) error {
		for _, s := range steps {
			for _, text := range stepTexts(s) {
				if err := ld.checkPlaceholders(text, known); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := check(t.Given); err != nil {
		return err
	}
	if err := check(t.When); err != nil {
		return err
	}
	return check(t.Then)
}

func collectCaptures(steps []lang.Step, known map[string]bool) {
	for _, s := range steps {
		if s.Action != nil && s.Action.CaptureAs != "" {
			known[s.Action.CaptureAs] = true
		}
		if s.Condition != nil && s.Condition.CaptureAs != "" {
			known[s.Condition.CaptureAs] = true
		}
	}
}

func stepTexts(s lang.Step) []string {
	if s.Action != nil {
		return []string{s.Action.Arg1, s.Action.Arg2}
	}
	if s.Condition != nil {
		texts := []string{s.Condition.Arg, s.Condition.Path}
		texts = append(texts, s.Condition.IgnoreFields...)
		return texts
	}
	return nil
}

func (ld *loader) checkPlaceholders(text string, known map[string]bool) error {
	for i := 0; i < len(text); {
		start := strings.Index(text[i:], "${")
		if start < 0 {
			return nil
		}
		i += start
		end := strings.Index(text[i:], "}")
		if end < 0 {
			return nil
		}
		placeholder := text[i+2 : i+end]
		i += end + 1

		name := placeholder
		if br := strings.IndexByte(placeholder, '['); br >= 0 {
			name = placeholder[:br]
			indexStr := placeholder[br+1 : len(placeholder)-1]
			if !known[name] {
				return &LoadError{Kind: "unknown_variable", Message: fmt.Sprintf("undeclared variable %q used in substitution", name)}
			}
			if v, ok := varByName(ld.file, name); ok {
				if items, ok := v.AsList(); ok {
					if idx, convErr := parseStaticIndex(indexStr); convErr == nil {
						if idx < 0 || idx >= len(items) {
							return &LoadError{Kind: "out_of_range_index", Message: fmt.Sprintf("static index %d out of range for %q", idx, name)}
						}
					}
				}
			}
			continue
		}
		if !known[name] {
			return &LoadError{Kind: "unknown_variable", Message: fmt.Sprintf("undeclared variable %q used in substitution", name)}
		}
	}
	return nil
}

func parseStaticIndex(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a static integer")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// varByName looks up a top-level `var` declaration by name.
func varByName(f *lang.File, name string) (value.Value, bool) {
	for _, v := range f.Vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return value.Value{}, false
}
