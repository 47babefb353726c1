package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestHandleValidateSuiteAcceptsGoldenFixture(t *testing.T) {
	res, err := HandleValidateSuite(context.Background(), callToolRequest(map[string]any{
		"path": "../../testdata/hello.chor",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got error result: %+v", res)
	}
}

func TestHandleValidateSuiteRequiresPath(t *testing.T) {
	res, err := HandleValidateSuite(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected an error result when path is missing")
	}
}

func TestHandleLintSuiteFlagsUnusedActor(t *testing.T) {
	res, err := HandleLintSuite(context.Background(), callToolRequest(map[string]any{
		"path": "../../testdata/lint_unused_actor.chor",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected warnings without an error result, got %+v", res)
	}
	data, _ := json.Marshal(res)
	if !strings.Contains(string(data), "W003") {
		t.Fatalf("expected a W003 unused-actor diagnostic, got %s", data)
	}
}
