package ollama

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/samber/lo"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// ToMessages converts unified messages to Ollama chat message format.
// Ollama keeps system messages inline and takes tool results as
// tool-role messages with plain string content.
func ToMessages(msgs []llm.Message) ([]api.Message, error) {
	result := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := toMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to convert message: %w", err)
		}
		result = append(result, converted...)
	}
	return result, nil
}

func toMessage(msg llm.Message) ([]api.Message, error) {
	if msg.Role == llm.RoleTool {
		var result []api.Message
		for _, block := range msg.Content {
			if block.Type != llm.ContentBlockTypeToolResult || block.ToolResult == nil {
				continue
			}
			result = append(result, api.Message{
				Role:    "tool",
				Content: block.ToolResult.Content,
			})
		}
		return result, nil
	}

	var content string
	var images []api.ImageData
	var toolCalls []api.ToolCall

	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			if content != "" {
				content += "\n"
			}
			content += block.Text
		case llm.ContentBlockTypeImage:
			if block.Image == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(block.Image.Source)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			images = append(images, api.ImageData(data))
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				continue
			}
			args := make(api.ToolCallFunctionArguments)
			for k, v := range block.ToolUse.Input {
				args[k] = v
			}
			toolCalls = append(toolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      block.ToolUse.Name,
					Arguments: args,
				},
			})
		default:
			return nil, fmt.Errorf("unsupported block type %q in %s message", block.Type, msg.Role)
		}
	}

	return []api.Message{{
		Role:      string(msg.Role),
		Content:   content,
		Images:    images,
		ToolCalls: toolCalls,
	}}, nil
}

// ToTools converts tool definitions to Ollama's function format.
func ToTools(specs []llm.ToolSpec) []api.Tool {
	return lo.Map(specs, func(spec llm.ToolSpec, _ int) api.Tool {
		return ToTool(&spec)
	})
}

// ToTool converts a single llm.ToolSpec to Ollama Tool format.
// Ollama's parameter schema is typed rather than free-form, so only the
// object-schema subset is mapped.
func ToTool(spec *llm.ToolSpec) api.Tool {
	properties := make(map[string]api.ToolProperty, len(spec.Schema.Properties))
	for name, raw := range spec.Schema.Properties {
		prop := api.ToolProperty{Type: api.PropertyType{"string"}}
		if propMap, ok := raw.(map[string]interface{}); ok {
			if propType, ok := propMap["type"].(string); ok {
				prop.Type = api.PropertyType{propType}
			}
			if desc, ok := propMap["description"].(string); ok {
				prop.Description = desc
			}
			if enum, ok := propMap["enum"].([]interface{}); ok {
				prop.Enum = enum
			}
		}
		properties[name] = prop
	}

	schemaType := spec.Schema.Type
	if schemaType == "" {
		schemaType = "object"
	}

	return api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: api.ToolFunctionParameters{
				Type:       schemaType,
				Properties: properties,
				Required:   spec.Schema.Required,
			},
		},
	}
}

// FromToolCall converts an Ollama tool call to a ToolUseBlock. Ollama
// never assigns call ids, so one is synthesized.
func FromToolCall(toolCall api.ToolCall) *llm.ToolUseBlock {
	input := make(map[string]interface{}, len(toolCall.Function.Arguments))
	for k, v := range toolCall.Function.Arguments {
		input[k] = v
	}
	return &llm.ToolUseBlock{
		ID:    "call_" + uuid.NewString(),
		Name:  toolCall.Function.Name,
		Input: input,
	}
}
