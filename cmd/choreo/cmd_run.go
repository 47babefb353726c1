package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/backend/filesystem"
	"github.com/choreo-lang/choreo/pkg/backend/system"
	"github.com/choreo-lang/choreo/pkg/backend/terminal"
	"github.com/choreo-lang/choreo/pkg/backend/web"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/config"
	"github.com/choreo-lang/choreo/pkg/console"
	"github.com/choreo-lang/choreo/pkg/debug"
	"github.com/choreo-lang/choreo/pkg/engine"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/report"
	"github.com/choreo-lang/choreo/pkg/tracelog"
)

var (
	runFile    string
	runVerbose bool
	runDebug   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a .chor file's scenarios",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "Path to the .chor file (required)")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Print failure detail with rendered markdown")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Break before each scenario's first tick in an interactive REPL")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFile == "" {
		return fmt.Errorf("--file is required")
	}

	f, err := parseFile(runFile)
	if err != nil {
		return err
	}
	base, err := baseSettings()
	if err != nil {
		return err
	}
	p, err := plan.Load(f, base)
	if err != nil {
		return fmt.Errorf("%s: %w", runFile, err)
	}

	runID := fmt.Sprintf("run-%d", os.Getpid())
	tracePath := filepath.Join(reportDir(p.Settings.ReportPath), "trace.jsonl")
	trace, err := tracelog.NewFileWriter(tracePath, runID)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	cfg, err := config.LoadFile(".choreo.yaml")
	if err != nil {
		return fmt.Errorf("load .choreo.yaml: %w", err)
	}
	trace.SetSecrets(append(append([]string{}, f.EnvNames...), cfg.RedactEnv...))

	factory := func() (action.Backends, condition.IOProbe, func()) {
		term, termErr := terminal.New(p.Settings.ShellPath)
		if termErr != nil {
			// A fatal backend construction error becomes a scenario that
			// fails every test rather than crashing the whole run.
			panic(&plan.BackendFatal{Backend: "Terminal", Err: termErr})
		}
		fsRoot, _ := os.Getwd()
		fs := filesystem.New(fsRoot)
		sys := system.New()
		webBackend := web.New()

		backends := action.Backends{
			Terminal:   term,
			Web:        webBackend,
			FileSystem: fs,
			System:     sys,
		}
		probe := condition.IOProbe{
			FileExists:       fs.FileExists,
			DirExists:        fs.DirExists,
			FileContains:     fs.FileContains,
			FileSize:         fs.FileSize,
			PortListening:    sys.PortListening,
			ServiceRunning:   sys.ServiceRunning,
			ServiceInstalled: sys.ServiceInstalled,
		}
		teardown := func() { _ = term.Kill() }
		return backends, probe, teardown
	}

	eng := engine.New(*p, factory, trace)

	if runDebug {
		repl, err := debug.New(os.Stdout)
		if err != nil {
			return err
		}
		defer repl.Close()
		eng.Debug = repl.Hook()
	}

	start := time.Now()
	res := eng.Run(context.Background())
	elapsed := time.Since(start)

	printer := console.New(os.Stdout)
	printer.Verbose = runVerbose
	printer.PrintFeature(res)

	rpt := report.Build(runFile, res, elapsed)
	writer := report.NewWriter(p.Settings.ReportPath)
	reportPath, err := writer.Write(rpt)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	trace.EmitReportWritten(reportPath, rpt.Summary.Tests, rpt.Summary.Failures)
	fmt.Printf("report written to %s\n", reportPath)

	if rpt.Summary.Failures != p.Settings.ExpectedFailures {
		return fmt.Errorf("%d failure(s), expected %d", rpt.Summary.Failures, p.Settings.ExpectedFailures)
	}
	return nil
}

func reportDir(reportPath string) string {
	if strings.HasSuffix(reportPath, "/") || filepath.Ext(reportPath) == "" {
		return reportPath
	}
	return filepath.Dir(reportPath)
}
