package llm

import (
	"encoding/json"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message represents a single message in a conversation.
// This is provider-neutral and can represent user, assistant, system,
// or tool-result messages.
type Message struct {
	Role    MessageRole
	Content []ContentBlock
}

// ContentBlock represents a single content block within a message.
// It can be text, an image, a tool use, or a tool result.
type ContentBlock struct {
	Type       ContentBlockType
	Text       string           // For text blocks
	Image      *ImageBlock      // For image blocks
	ToolUse    *ToolUseBlock    // For tool use blocks
	ToolResult *ToolResultBlock // For tool result blocks
}

// ContentBlockType represents the type of content block.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeImage      ContentBlockType = "image"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
)

// ImageBlock represents image content, either base64 data or a URL.
type ImageBlock struct {
	Source    string // base64-encoded data or a URL
	MediaType string // e.g. "image/png"
}

// ToolUseBlock represents a tool invocation request from the assistant.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]interface{} // JSON-serializable input parameters
}

// ToolResultBlock represents the result of a tool invocation.
// ID must carry the identifier of the tool call it answers.
type ToolResultBlock struct {
	ID      string
	Content string // JSON-serialized result
	IsError bool
}

// ToolSpec represents a tool definition that can be provided to an LLM.
// Names must be unique within a single request.
type ToolSpec struct {
	Name        string
	Description string
	Schema      ToolSchema
}

// ToolSchema represents the JSON schema for a tool's input parameters.
// Only the object-type subset (properties, required, enum) is supported.
type ToolSchema struct {
	Type        string
	Properties  map[string]interface{}
	Required    []string
	ExtraFields map[string]interface{} // For any additional schema fields
}

// AsMap renders the schema as a plain JSON-schema object map.
func (s ToolSchema) AsMap() map[string]interface{} {
	typ := s.Type
	if typ == "" {
		typ = "object"
	}
	m := map[string]interface{}{"type": typ}
	if s.Properties != nil {
		m["properties"] = s.Properties
	} else {
		m["properties"] = map[string]interface{}{}
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	for k, v := range s.ExtraFields {
		m[k] = v
	}
	return m
}

// Request represents a complete LLM API request.
// A Request is owned by exactly one in-flight call and is treated as
// immutable by drivers.
type Request struct {
	Model       string
	Messages    []Message
	System      string
	Tools       []ToolSpec
	MaxTokens   int64
	Temperature *float64 // Optional temperature override
	TopP        *float64 // Optional nucleus sampling override
	Stream      bool
}

// Response represents a complete LLM API response.
type Response struct {
	Content    []ContentBlock
	Reasoning  string
	Usage      *Usage
	StopReason string
}

// Result is the flattened terminal form of a response, delivered to
// callers exactly once per request.
type Result struct {
	Content   string
	Reasoning string
	ToolCalls []ToolUseBlock
	Usage     *Usage
}

// ToResult flattens a Response into its terminal Result form.
func (r *Response) ToResult() *Result {
	res := &Result{Reasoning: r.Reasoning, Usage: r.Usage}
	for _, block := range r.Content {
		switch block.Type {
		case ContentBlockTypeText:
			res.Content += block.Text
		case ContentBlockTypeToolUse:
			if block.ToolUse != nil {
				res.ToolCalls = append(res.ToolCalls, *block.ToolUse)
			}
		}
	}
	return res
}

// Usage represents token usage information from an LLM response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// NewTextMessage creates a new message with text content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{
				Type: ContentBlockTypeText,
				Text: text,
			},
		},
	}
}

// NewToolUseMessage creates a new assistant message with tool use blocks.
func NewToolUseMessage(toolUses []ToolUseBlock) Message {
	content := make([]ContentBlock, len(toolUses))
	for i, tu := range toolUses {
		content[i] = ContentBlock{
			Type:    ContentBlockTypeToolUse,
			ToolUse: &tu,
		}
	}
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// NewToolResultMessage creates a new tool message with tool result blocks.
func NewToolResultMessage(toolResults []ToolResultBlock) Message {
	content := make([]ContentBlock, len(toolResults))
	for i, tr := range toolResults {
		content[i] = ContentBlock{
			Type:       ContentBlockTypeToolResult,
			ToolResult: &tr,
		}
	}
	return Message{
		Role:    RoleTool,
		Content: content,
	}
}

// TextContent concatenates the text blocks of a message.
func (m Message) TextContent() string {
	var out string
	for _, block := range m.Content {
		if block.Type == ContentBlockTypeText {
			out += block.Text
		}
	}
	return out
}

// ToJSON marshals a message to JSON for debugging/logging purposes.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
