// Command choreo-mcp exposes the choreo test engine over the Model
// Context Protocol so AI agents can validate, lint, and run .chor suites
// without shelling out to the choreo binary.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/choreo-lang/choreo/pkg/mcpserver"
)

var version = "dev"

func main() {
	s := mcpserver.New(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
