package llm

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
)

// ToolSpecFromMCP converts an MCP tool definition into a ToolSpec so that
// tools discovered from MCP servers can be passed straight into a Request.
func ToolSpecFromMCP(tool mcp.Tool) ToolSpec {
	schema := ToolSchema{
		Type:     tool.InputSchema.Type,
		Required: tool.InputSchema.Required,
	}
	if tool.InputSchema.Properties != nil {
		schema.Properties = make(map[string]interface{}, len(tool.InputSchema.Properties))
		for k, v := range tool.InputSchema.Properties {
			schema.Properties[k] = v
		}
	}
	return ToolSpec{
		Name:        tool.Name,
		Description: tool.Description,
		Schema:      schema,
	}
}

// ToolSpecsFromMCP converts a slice of MCP tool definitions.
func ToolSpecsFromMCP(tools []mcp.Tool) []ToolSpec {
	return lo.Map(tools, func(t mcp.Tool, _ int) ToolSpec {
		return ToolSpecFromMCP(t)
	})
}
