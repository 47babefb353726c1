package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/choreo-lang/choreo/pkg/report"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Regenerate .choreo/report-schema.json from the current report format",
	RunE:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	data, err := report.GenerateJSONSchema()
	if err != nil {
		return fmt.Errorf("generate report schema: %w", err)
	}

	dir := ".choreo"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, "report-schema.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("✓ wrote %s\n", path)
	return nil
}
