package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initFile string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a starter .chor file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initFile, "file", "example.chor", "Path to write the starter file")
}

const initTemplate = `feature "example"
actor Terminal

scenario "says hello" {
	test T1 "prints a greeting" {
		given: Test can_start
		when: Terminal run "echo hello"
		then: Terminal last_command succeeded
	}
}
`

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initFile); err == nil {
		return fmt.Errorf("%s already exists", initFile)
	}
	if err := os.WriteFile(initFile, []byte(initTemplate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", initFile, err)
	}
	fmt.Printf("✓ wrote %s\n", initFile)
	return nil
}
