package openai

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

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
	if converted[0].Role != openai.ChatMessageRoleSystem || converted[0].Content != "be brief" {
		t.Errorf("Expected system message, got %+v", converted[0])
	}
	if converted[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("Expected user role, got %q", converted[1].Role)
	}
	if converted[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("Expected assistant role, got %q", converted[2].Role)
	}
}

func TestToMessagesExpandsToolResults(t *testing.T) {
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
	// One OpenAI tool message per result.
	if len(converted) != 2 {
		t.Fatalf("Expected 2 tool messages, got %d", len(converted))
	}
	if converted[0].Role != openai.ChatMessageRoleTool || converted[0].ToolCallID != "c1" {
		t.Errorf("Expected tool message for c1, got %+v", converted[0])
	}
	if converted[1].ToolCallID != "c2" {
		t.Errorf("Expected tool message for c2, got %+v", converted[1])
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
	if call.ID != "c1" || call.Function.Name != "lookup" {
		t.Errorf("Expected c1/lookup, got %+v", call)
	}
	if !strings.Contains(call.Function.Arguments, `"q":"cats"`) {
		t.Errorf("Expected serialized arguments, got %q", call.Function.Arguments)
	}
}

func TestToMessagesUserImage(t *testing.T) {
	msg := llm.Message{
		Role: llm.RoleUser,
		Content: []llm.ContentBlock{
			{Type: llm.ContentBlockTypeText, Text: "what is this"},
			{Type: llm.ContentBlockTypeImage, Image: &llm.ImageBlock{Source: "aGk=", MediaType: "image/png"}},
		},
	}

	converted, err := ToMessages([]llm.Message{msg})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	parts := converted[0].MultiContent
	if len(parts) != 2 {
		t.Fatalf("Expected 2 content parts, got %d", len(parts))
	}
	if parts[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("Expected image part, got %v", parts[1].Type)
	}
	if parts[1].ImageURL.URL != "data:image/png;base64,aGk=" {
		t.Errorf("Expected data URI, got %q", parts[1].ImageURL.URL)
	}
}

func TestToTools(t *testing.T) {
	specs := []llm.ToolSpec{{
		Name:        "search",
		Description: "Find documents",
		Schema: llm.ToolSchema{
			Properties: map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
			Required:   []string{"q"},
		},
	}}

	tools := ToTools(specs)
	if len(tools) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(tools))
	}
	if tools[0].Type != openai.ToolTypeFunction {
		t.Errorf("Expected function tool type, got %v", tools[0].Type)
	}
	if tools[0].Function.Name != "search" {
		t.Errorf("Expected name search, got %q", tools[0].Function.Name)
	}
	params, ok := tools[0].Function.Parameters.(map[string]interface{})
	if !ok || params["type"] != "object" {
		t.Errorf("Expected object schema, got %v", tools[0].Function.Parameters)
	}
}

func TestFromToolCall(t *testing.T) {
	block := FromToolCall(openai.ToolCall{
		ID:       "c1",
		Function: openai.FunctionCall{Name: "lookup", Arguments: `{"q":"cats"}`},
	})
	if block.ID != "c1" || block.Name != "lookup" {
		t.Errorf("Expected c1/lookup, got %+v", block)
	}
	if block.Input["q"] != "cats" {
		t.Errorf("Expected parsed input, got %v", block.Input)
	}
}

func TestFromToolCallMalformedArguments(t *testing.T) {
	block := FromToolCall(openai.ToolCall{
		ID:       "c1",
		Function: openai.FunctionCall{Name: "lookup", Arguments: "not json"},
	})
	if block.Input == nil || len(block.Input) != 0 {
		t.Errorf("Expected empty input map for malformed arguments, got %v", block.Input)
	}
}
