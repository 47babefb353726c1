package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/choreo-lang/choreo/pkg/action"
	"github.com/choreo-lang/choreo/pkg/backend/filesystem"
	"github.com/choreo-lang/choreo/pkg/backend/system"
	"github.com/choreo-lang/choreo/pkg/backend/terminal"
	"github.com/choreo-lang/choreo/pkg/backend/web"
	"github.com/choreo-lang/choreo/pkg/condition"
	"github.com/choreo-lang/choreo/pkg/config"
	"github.com/choreo-lang/choreo/pkg/engine"
	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/lint"
	"github.com/choreo-lang/choreo/pkg/plan"
	"github.com/choreo-lang/choreo/pkg/report"
)

func loadSuite(path string) (*lang.File, plan.Settings, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, plan.Settings{}, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := lang.Parse(string(src))
	if err != nil {
		return nil, plan.Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg, err := config.LoadFile(".choreo.yaml")
	if err != nil {
		return nil, plan.Settings{}, fmt.Errorf("load .choreo.yaml: %w", err)
	}
	return f, cfg.Merge(plan.DefaultSettings()), nil
}

// HandleValidateSuite implements the choreo/validate_suite tool.
func HandleValidateSuite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	f, base, err := loadSuite(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	p, err := plan.Load(f, base)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	tests := 0
	for _, sc := range p.Scenarios {
		tests += len(sc.Tests)
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d scenarios, %d tests)", path, len(p.Scenarios), tests)), nil
}

// HandleLintSuite implements the choreo/lint_suite tool.
func HandleLintSuite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	f, base, err := loadSuite(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	diags := lint.Lint(f, base)
	data, _ := json.MarshalIndent(diags, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: lint.HasErrors(diags),
	}, nil
}

// HandleRunSuite implements the choreo/run_suite tool. It runs against the
// real Terminal/Web/FileSystem/System backends, the same as `choreo run`.
func HandleRunSuite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	verbose := fmt.Sprint(args["verbose"]) == "true"

	f, base, err := loadSuite(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	p, err := plan.Load(f, base)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	factory := func() (action.Backends, condition.IOProbe, func()) {
		term, termErr := terminal.New(p.Settings.ShellPath)
		if termErr != nil {
			panic(&plan.BackendFatal{Backend: "Terminal", Err: termErr})
		}
		fsRoot, _ := os.Getwd()
		fs := filesystem.New(fsRoot)
		sys := system.New()
		webBackend := web.New()
		backends := action.Backends{Terminal: term, Web: webBackend, FileSystem: fs, System: sys}
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

	eng := engine.New(*p, factory, nil)
	start := time.Now()
	res := eng.Run(ctx)
	elapsed := time.Since(start)

	rpt := report.Build(path, res, elapsed)
	if !verbose {
		for i := range rpt.Features {
			for j := range rpt.Features[i].Elements {
				for k := range rpt.Features[i].Elements[j].Steps {
					rpt.Features[i].Elements[j].Steps[k].Description = ""
				}
			}
		}
	}

	data, _ := json.MarshalIndent(rpt, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: rpt.Summary.Failures > 0,
	}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(msg)}, IsError: true}
}
