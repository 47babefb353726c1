package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a .chor file loads into a runnable plan",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Path to the .chor file (required)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateFile == "" {
		return fmt.Errorf("--file is required")
	}
	p, err := loadPlan(validateFile)
	if err != nil {
		return err
	}
	tests := 0
	for _, sc := range p.Scenarios {
		tests += len(sc.Tests)
	}
	fmt.Printf("✓ %s is valid (%d scenarios, %d tests)\n", validateFile, len(p.Scenarios), tests)
	return nil
}
