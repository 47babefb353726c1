// Package mcpserver exposes the choreo test engine to AI agents over the
// Model Context Protocol: validate and run .chor suites without shelling
// out to the choreo binary.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with the choreo tools registered.
func New(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"choreo",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("choreo/validate_suite",
			mcp.WithDescription("Validate a .chor file loads into a runnable plan"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .chor file")),
		),
		HandleValidateSuite,
	)

	s.AddTool(
		mcp.NewTool("choreo/run_suite",
			mcp.WithDescription("Run a .chor file's scenarios and return the Cucumber-style report"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .chor file")),
			mcp.WithString("verbose", mcp.Description("Set to \"true\" to keep each test's description in the report; failure reasons and captured output are not part of the report")),
		),
		HandleRunSuite,
	)

	s.AddTool(
		mcp.NewTool("choreo/lint_suite",
			mcp.WithDescription("Report style and structural diagnostics for a .chor file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .chor file")),
		),
		HandleLintSuite,
	)

	return s
}
