package llm

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestToolSpecFromMCP(t *testing.T) {
	tool := mcp.Tool{
		Name:        "search",
		Description: "Find documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"q": map[string]any{"type": "string"},
			},
			Required: []string{"q"},
		},
	}

	spec := ToolSpecFromMCP(tool)
	if spec.Name != "search" || spec.Description != "Find documents" {
		t.Errorf("Expected name/description carried over, got %+v", spec)
	}
	if spec.Schema.Type != "object" {
		t.Errorf("Expected object schema, got %q", spec.Schema.Type)
	}
	if _, ok := spec.Schema.Properties["q"]; !ok {
		t.Errorf("Expected q property, got %v", spec.Schema.Properties)
	}
	if len(spec.Schema.Required) != 1 || spec.Schema.Required[0] != "q" {
		t.Errorf("Expected required q, got %v", spec.Schema.Required)
	}
}

func TestToolSpecsFromMCP(t *testing.T) {
	specs := ToolSpecsFromMCP([]mcp.Tool{{Name: "a"}, {Name: "b"}})
	if len(specs) != 2 || specs[0].Name != "a" || specs[1].Name != "b" {
		t.Errorf("Expected converted specs in order, got %v", specs)
	}
}
