package ollama

import (
	"strings"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/crosstalk-ai/crosstalk/llm"
)

func TestToMessagesBasicRoles(t *testing.T) {
	msgs := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "be brief"),
		llm.NewTextMessage(llm.RoleUser, "hello"),
		llm.NewTextMessage(llm.RoleAssistant, "hi"),
	}

	converted, err := ToMessages(msgs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(converted) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(converted))
	}
	if converted[0].Role != "system" || converted[0].Content != "be brief" {
		t.Errorf("Expected inline system message, got %+v", converted[0])
	}
}

func TestToMessagesToolResults(t *testing.T) {
	msgs := []llm.Message{
		llm.NewToolResultMessage([]llm.ToolResultBlock{
			{ID: "c1", Content: `{"a":1}`},
			{ID: "c2", Content: `{"b":2}`},
		}),
	}

	converted, err := ToMessages(msgs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(converted) != 2 {
		t.Fatalf("Expected one tool message per result, got %d", len(converted))
	}
	if converted[0].Role != "tool" || converted[0].Content != `{"a":1}` {
		t.Errorf("Expected tool-role message, got %+v", converted[0])
	}
}

func TestToMessagesAssistantToolCalls(t *testing.T) {
	msgs := []llm.Message{
		llm.NewToolUseMessage([]llm.ToolUseBlock{
			{ID: "c1", Name: "lookup", Input: map[string]interface{}{"q": "cats"}},
		}),
	}

	converted, err := ToMessages(msgs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(converted) != 1 || len(converted[0].ToolCalls) != 1 {
		t.Fatalf("Expected one assistant message with one tool call, got %+v", converted)
	}
	call := converted[0].ToolCalls[0]
	if call.Function.Name != "lookup" {
		t.Errorf("Expected name lookup, got %q", call.Function.Name)
	}
	if call.Function.Arguments["q"] != "cats" {
		t.Errorf("Expected arguments carried through, got %v", call.Function.Arguments)
	}
}

func TestToMessagesDecodesImages(t *testing.T) {
	msg := llm.Message{
		Role: llm.RoleUser,
		Content: []llm.ContentBlock{
			{Type: llm.ContentBlockTypeImage, Image: &llm.ImageBlock{Source: "aGk=", MediaType: "image/png"}},
		},
	}

	converted, err := ToMessages([]llm.Message{msg})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(converted[0].Images) != 1 {
		t.Fatalf("Expected 1 image, got %d", len(converted[0].Images))
	}
	if string(converted[0].Images[0]) != "hi" {
		t.Errorf("Expected decoded image bytes, got %q", converted[0].Images[0])
	}
}

func TestToMessagesRejectsBadImageData(t *testing.T) {
	msg := llm.Message{
		Role: llm.RoleUser,
		Content: []llm.ContentBlock{
			{Type: llm.ContentBlockTypeImage, Image: &llm.ImageBlock{Source: "not base64!!"}},
		},
	}
	if _, err := ToMessages([]llm.Message{msg}); err == nil {
		t.Error("Expected error for invalid base64 image data")
	}
}

func TestToTool(t *testing.T) {
	spec := llm.ToolSpec{
		Name:        "search",
		Description: "Find documents",
		Schema: llm.ToolSchema{
			Properties: map[string]interface{}{
				"q":     map[string]interface{}{"type": "string", "description": "query"},
				"scope": map[string]interface{}{"type": "string", "enum": []interface{}{"all", "recent"}},
			},
			Required: []string{"q"},
		},
	}

	tool := ToTool(&spec)
	if tool.Type != "function" || tool.Function.Name != "search" {
		t.Errorf("Expected function tool, got %+v", tool.Function)
	}
	if tool.Function.Parameters.Type != "object" {
		t.Errorf("Expected object schema type, got %q", tool.Function.Parameters.Type)
	}
	q, ok := tool.Function.Parameters.Properties["q"]
	if !ok {
		t.Fatal("Expected q property")
	}
	if q.Description != "query" {
		t.Errorf("Expected description mapped, got %q", q.Description)
	}
	scope := tool.Function.Parameters.Properties["scope"]
	if len(scope.Enum) != 2 {
		t.Errorf("Expected enum mapped, got %v", scope.Enum)
	}
	if len(tool.Function.Parameters.Required) != 1 {
		t.Errorf("Expected required fields, got %v", tool.Function.Parameters.Required)
	}
}

func TestFromToolCallSynthesizesID(t *testing.T) {
	call := api.ToolCall{
		Function: api.ToolCallFunction{
			Name:      "lookup",
			Arguments: api.ToolCallFunctionArguments{"q": "cats"},
		},
	}

	block := FromToolCall(call)
	if block.Name != "lookup" || block.Input["q"] != "cats" {
		t.Errorf("Expected converted call, got %+v", block)
	}
	if !strings.HasPrefix(block.ID, "call_") {
		t.Errorf("Expected synthesized call id, got %q", block.ID)
	}

	// Each conversion gets a distinct id.
	if FromToolCall(call).ID == block.ID {
		t.Error("Expected unique ids per call")
	}
}
