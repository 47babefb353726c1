package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/choreo-lang/choreo/pkg/lint"
)

var lintFile string

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Report style and structural diagnostics for a .chor file",
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().StringVar(&lintFile, "file", "", "Path to the .chor file (required)")
}

func runLint(cmd *cobra.Command, args []string) error {
	if lintFile == "" {
		return fmt.Errorf("--file is required")
	}
	f, err := parseFile(lintFile)
	if err != nil {
		return err
	}
	base, err := baseSettings()
	if err != nil {
		return err
	}

	diags := lint.Lint(f, base)
	if len(diags) == 0 {
		fmt.Printf("✓ %s is clean\n", lintFile)
		return nil
	}

	for _, d := range diags {
		glyph := "ⓘ"
		switch d.Severity {
		case lint.SeverityError:
			glyph = "✗"
		case lint.SeverityWarning:
			glyph = "⚠"
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", glyph, d.String())
	}

	errs, warns, infos := lint.CountBySeverity(diags)
	fmt.Fprintf(os.Stderr, "\n%d error(s), %d warning(s), %d info\n", errs, warns, infos)
	if lint.HasErrors(diags) {
		return fmt.Errorf("lint failed with %d error(s)", errs)
	}
	return nil
}
