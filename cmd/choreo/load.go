package main

import (
	"fmt"
	"os"

	"github.com/choreo-lang/choreo/pkg/config"
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/plan"
)

// parseFile reads and parses path into a lang.File.
func parseFile(path string) (*lang.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := lang.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// baseSettings loads .choreo.yaml from the working directory, if present,
// and merges it over the engine's built-in defaults.
func baseSettings() (plan.Settings, error) {
	cfg, err := config.LoadFile(".choreo.yaml")
	if err != nil {
		return plan.Settings{}, fmt.Errorf("load .choreo.yaml: %w", err)
	}
	return cfg.Merge(plan.DefaultSettings()), nil
}

// loadPlan parses path and loads it into a Plan against project defaults.
func loadPlan(path string) (*plan.Plan, error) {
	f, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	base, err := baseSettings()
	if err != nil {
		return nil, err
	}
	p, err := plan.Load(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
