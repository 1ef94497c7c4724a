package openai

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// ToMessages converts unified messages to OpenAI chat message format.
// A tool-role message with several results expands into one OpenAI tool
// message per result, since OpenAI carries one tool_call_id per message.
func ToMessages(msgs []llm.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := toMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to convert message: %w", err)
		}
		result = append(result, converted...)
	}
	return result, nil
}

func toMessage(msg llm.Message) ([]openai.ChatCompletionMessage, error) {
	switch msg.Role {
	case llm.RoleSystem:
		return []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: msg.TextContent(),
		}}, nil
	case llm.RoleUser:
		converted, err := toUserMessage(msg)
		if err != nil {
			return nil, err
		}
		return []openai.ChatCompletionMessage{converted}, nil
	case llm.RoleAssistant:
		converted, err := toAssistantMessage(msg)
		if err != nil {
			return nil, err
		}
		return []openai.ChatCompletionMessage{converted}, nil
	case llm.RoleTool:
		return toToolMessages(msg), nil
	default:
		return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
	}
}

func toUserMessage(msg llm.Message) (openai.ChatCompletionMessage, error) {
	hasImage := false
	for _, block := range msg.Content {
		if block.Type == llm.ContentBlockTypeImage {
			hasImage = true
			break
		}
	}

	// Plain text stays in the string form; images force multi-part content.
	if !hasImage {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: msg.TextContent(),
		}, nil
	}

	parts := make([]openai.ChatMessagePart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: block.Text,
			})
		case llm.ContentBlockTypeImage:
			if block.Image == nil {
				continue
			}
			url := block.Image.Source
			if block.Image.MediaType != "" {
				url = fmt.Sprintf("data:%s;base64,%s", block.Image.MediaType, block.Image.Source)
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
		default:
			return openai.ChatCompletionMessage{}, fmt.Errorf("unsupported block type %q in user message", block.Type)
		}
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}, nil
}

func toAssistantMessage(msg llm.Message) (openai.ChatCompletionMessage, error) {
	var content string
	var toolCalls []openai.ToolCall

	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			if content != "" {
				content += "\n"
			}
			content += block.Text
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				continue
			}
			argsJSON, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				return openai.ChatCompletionMessage{}, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   block.ToolUse.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      block.ToolUse.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	return openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	}, nil
}

func toToolMessages(msg llm.Message) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	for _, block := range msg.Content {
		if block.Type != llm.ContentBlockTypeToolResult || block.ToolResult == nil {
			continue
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    block.ToolResult.Content,
			ToolCallID: block.ToolResult.ID,
		})
	}
	return result
}

// ToTools converts tool definitions to OpenAI function-tool format.
func ToTools(specs []llm.ToolSpec) []openai.Tool {
	result := make([]openai.Tool, 0, len(specs))
	for i := range specs {
		spec := &specs[i]
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Schema.AsMap(),
			},
		})
	}
	return result
}

// FromToolCall converts a completed OpenAI tool call to a ToolUseBlock,
// repairing malformed argument JSON where possible.
func FromToolCall(toolCall openai.ToolCall) *llm.ToolUseBlock {
	var input map[string]interface{}
	if toolCall.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &input); err != nil {
			input = make(map[string]interface{})
		}
	} else {
		input = make(map[string]interface{})
	}
	return &llm.ToolUseBlock{
		ID:    toolCall.ID,
		Name:  toolCall.Function.Name,
		Input: input,
	}
}
