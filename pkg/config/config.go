// Package config loads the optional project-wide .choreo.yaml file that
// supplies defaults for every .chor file's settings block, the same role
// the reference tool's project config plays ahead of a single runbook's
// own overrides.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/choreo-lang/choreo/pkg/plan"
)

// Config is the strict shape of .choreo.yaml. Every field is optional; a
// field left unset keeps plan.DefaultSettings' value after Merge.
type Config struct {
	TimeoutSeconds   *float64 `yaml:"timeout_seconds,omitempty"`
	StopOnFailure    *bool    `yaml:"stop_on_failure,omitempty"`
	ShellPath        *string  `yaml:"shell_path,omitempty"`
	ReportPath       *string  `yaml:"report_path,omitempty"`
	ExpectedFailures *int     `yaml:"expected_failures,omitempty"`

	// RedactEnv names environment variables whose values choreo run replaces
	// with "<REDACTED>" in the failure reasons, errors and condition messages
	// of its JSON trace. The JSON report is not redacted.
	RedactEnv []string `yaml:"redact_env,omitempty"`
}

// LoadFile reads and parses path with strict unknown-field rejection. A
// missing file is not an error: it returns a zero Config, since
// .choreo.yaml is optional.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a Config from r with strict unknown-field rejection.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// Merge layers c's set fields on top of base, returning a new Settings.
// base is untouched. Fields c leaves nil pass base's value through
// unchanged, so a project config only needs to name what it overrides.
func (c *Config) Merge(base plan.Settings) plan.Settings {
	out := base
	if c == nil {
		return out
	}
	if c.TimeoutSeconds != nil {
		out.TimeoutSeconds = *c.TimeoutSeconds
	}
	if c.StopOnFailure != nil {
		out.StopOnFailure = *c.StopOnFailure
	}
	if c.ShellPath != nil {
		out.ShellPath = *c.ShellPath
	}
	if c.ReportPath != nil {
		out.ReportPath = *c.ReportPath
	}
	if c.ExpectedFailures != nil {
		out.ExpectedFailures = *c.ExpectedFailures
	}
	return out
}
