package anthropic

import (
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// ToMessageParams converts unified messages to Anthropic MessageParams.
// System messages are skipped (they travel in the request's System
// field) and tool-role messages become user messages carrying
// tool_result blocks, which is how Anthropic expects them.
func ToMessageParams(msgs []llm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == llm.RoleSystem {
			continue
		}
		converted, err := ToMessageParam(msg)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

// ToMessageParam converts a single llm.Message to an Anthropic MessageParam.
func ToMessageParam(msg llm.Message) (anthropic.MessageParam, error) {
	contentBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			contentBlocks = append(contentBlocks, anthropic.NewTextBlock(block.Text))
		case llm.ContentBlockTypeImage:
			if block.Image != nil {
				contentBlocks = append(contentBlocks, anthropic.NewImageBlockBase64(block.Image.MediaType, block.Image.Source))
			}
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse != nil {
				contentBlocks = append(contentBlocks, anthropic.NewToolUseBlock(
					block.ToolUse.ID,
					block.ToolUse.Input,
					block.ToolUse.Name,
				))
			}
		case llm.ContentBlockTypeToolResult:
			if block.ToolResult != nil {
				contentBlocks = append(contentBlocks, anthropic.NewToolResultBlock(
					block.ToolResult.ID,
					block.ToolResult.Content,
					block.ToolResult.IsError,
				))
			}
		default:
			return anthropic.MessageParam{}, fmt.Errorf("unsupported block type: %s", block.Type)
		}
	}

	switch msg.Role {
	case llm.RoleAssistant:
		return anthropic.NewAssistantMessage(contentBlocks...), nil
	case llm.RoleUser, llm.RoleTool:
		return anthropic.NewUserMessage(contentBlocks...), nil
	default:
		return anthropic.MessageParam{}, fmt.Errorf("unsupported message role: %s", msg.Role)
	}
}

// FromContentBlock converts an Anthropic response content block to the
// unified form. Unknown block variants are skipped.
func FromContentBlock(blockUnion anthropic.ContentBlockUnion) (llm.ContentBlock, bool) {
	switch block := blockUnion.AsAny().(type) {
	case anthropic.TextBlock:
		return llm.ContentBlock{
			Type: llm.ContentBlockTypeText,
			Text: block.Text,
		}, true
	case anthropic.ToolUseBlock:
		var input map[string]interface{}
		if raw, err := json.Marshal(block.Input); err == nil {
			if err := json.Unmarshal(raw, &input); err != nil {
				input = nil
			}
		}
		if input == nil {
			input = make(map[string]interface{})
		}
		return llm.ContentBlock{
			Type: llm.ContentBlockTypeToolUse,
			ToolUse: &llm.ToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			},
		}, true
	}
	return llm.ContentBlock{}, false
}

// ToToolUnionParam converts an llm.ToolSpec to an Anthropic ToolUnionParam.
func ToToolUnionParam(spec *llm.ToolSpec) anthropic.ToolUnionParam {
	toolParam := anthropic.ToolParam{
		Name:        spec.Name,
		Description: anthropic.String(spec.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:        "object",
			Properties:  spec.Schema.Properties,
			Required:    spec.Schema.Required,
			ExtraFields: spec.Schema.ExtraFields,
		},
	}
	return anthropic.ToolUnionParam{OfTool: &toolParam}
}

// ToToolUnionParams converts a slice of llm.ToolSpecs to Anthropic ToolUnionParams.
func ToToolUnionParams(specs []llm.ToolSpec) []anthropic.ToolUnionParam {
	return lo.Map(specs, func(spec llm.ToolSpec, _ int) anthropic.ToolUnionParam {
		return ToToolUnionParam(&spec)
	})
}
