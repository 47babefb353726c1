package plan

import (
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/value"
)

// Settings is the fully resolved settings table, after config defaults
// and per-file overrides have been merged.
type Settings struct {
	TimeoutSeconds   float64
	StopOnFailure    bool
	ShellPath        string
	ReportPath       string
	ExpectedFailures int
}

// DefaultSettings returns the engine's built-in defaults, used when
// neither a project config file nor the .chor file's settings block
// specifies a value.
func DefaultSettings() Settings {
	return Settings{
		TimeoutSeconds:   30,
		StopOnFailure:    false,
		ShellPath:        "sh",
		ReportPath:       "reports/",
		ExpectedFailures: 0,
	}
}

// TestPlan is one fully-expanded, fully-inlined test: no foreach templates
// and no task calls remain by the time a TestPlan exists.
type TestPlan struct {
	ID          string
	Description string
	Given       []lang.Step
	When        []lang.Step
	Then        []lang.Step
}

// ScenarioPlan is one scenario after background prefixing and foreach
// expansion.
type ScenarioPlan struct {
	Name     string
	Parallel bool
	Tests    []TestPlan
	After    []lang.Step
}

// Plan is the immutable result of the loader: the runtime input to
// scenario engines. It is created once and never mutated.
type Plan struct {
	Feature     string
	Settings    Settings
	Actors      map[string]bool
	InitialVars *value.Store
	Scenarios   []ScenarioPlan
}
