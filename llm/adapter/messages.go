package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// ConvertMessages translates unified messages into the generic wire shape
// described by cfg. It is a pure function: no network, no mutable state.
//
// The returned system string is non-empty only in SystemParameter mode,
// where the driver places it in a protocol-specific top-level field
// instead of the message list.
func ConvertMessages(msgs []llm.Message, systemPrompt string, cfg Config) ([]map[string]interface{}, string, error) {
	system := collectSystemText(msgs, systemPrompt)

	wire := make([]map[string]interface{}, 0, len(msgs)+1)
	if system != "" && cfg.Messages.SystemMode == SystemInline {
		wire = append(wire, map[string]interface{}{
			"role":    "system",
			"content": system,
		})
	}

	mergedSystem := cfg.Messages.SystemMode != SystemMergeFirstUser || system == ""
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			// Folded into the combined system text above.
			continue

		case llm.RoleUser:
			entry, err := convertUserMessage(msg)
			if err != nil {
				return nil, "", err
			}
			if !mergedSystem {
				if text, ok := entry["content"].(string); ok {
					entry["content"] = system + "\n\n" + text
					mergedSystem = true
				}
			}
			wire = append(wire, entry)

		case llm.RoleAssistant:
			wire = append(wire, convertAssistantMessage(msg, cfg))

		case llm.RoleTool:
			wire = append(wire, convertToolResults(msg, cfg)...)

		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	if cfg.Messages.SystemMode == SystemParameter {
		return wire, system, nil
	}
	return wire, "", nil
}

// collectSystemText concatenates the caller-supplied system prompt and all
// system-role messages with blank lines, in order.
func collectSystemText(msgs []llm.Message, systemPrompt string) string {
	parts := make([]string, 0, 2)
	if systemPrompt != "" {
		parts = append(parts, systemPrompt)
	}
	for _, msg := range msgs {
		if msg.Role != llm.RoleSystem {
			continue
		}
		if text := msg.TextContent(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func convertUserMessage(msg llm.Message) (map[string]interface{}, error) {
	hasImage := false
	for _, block := range msg.Content {
		if block.Type == llm.ContentBlockTypeImage {
			hasImage = true
			break
		}
	}

	if !hasImage {
		return map[string]interface{}{
			"role":    "user",
			"content": msg.TextContent(),
		}, nil
	}

	// Mixed text/image content becomes a typed part list.
	parts := make([]map[string]interface{}, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			parts = append(parts, map[string]interface{}{
				"type": "text",
				"text": block.Text,
			})
		case llm.ContentBlockTypeImage:
			if block.Image == nil {
				continue
			}
			url := block.Image.Source
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "data:") {
				url = fmt.Sprintf("data:%s;base64,%s", block.Image.MediaType, block.Image.Source)
			}
			parts = append(parts, map[string]interface{}{
				"type":      "image_url",
				"image_url": map[string]interface{}{"url": url},
			})
		default:
			return nil, fmt.Errorf("unsupported block type %q in user message", block.Type)
		}
	}
	return map[string]interface{}{"role": "user", "content": parts}, nil
}

// convertAssistantMessage re-expresses an assistant message either with a
// tool_calls array attached (function-call style) or as typed content
// blocks in the body (block style), selected by the tool wrap mode.
func convertAssistantMessage(msg llm.Message, cfg Config) map[string]interface{} {
	text := msg.TextContent()

	var toolUses []*llm.ToolUseBlock
	for _, block := range msg.Content {
		if block.Type == llm.ContentBlockTypeToolUse && block.ToolUse != nil {
			toolUses = append(toolUses, block.ToolUse)
		}
	}

	if len(toolUses) == 0 {
		return map[string]interface{}{"role": "assistant", "content": text}
	}

	if cfg.Tools.WrapMode == WrapNone {
		// Block style: tool invocations embedded in the content list.
		blocks := make([]map[string]interface{}, 0, len(msg.Content))
		if text != "" {
			blocks = append(blocks, map[string]interface{}{"type": "text", "text": text})
		}
		for _, tu := range toolUses {
			blocks = append(blocks, map[string]interface{}{
				"type":  "tool_use",
				"id":    tu.ID,
				"name":  tu.Name,
				"input": tu.Input,
			})
		}
		return map[string]interface{}{"role": "assistant", "content": blocks}
	}

	wrapper := string(cfg.Tools.WrapMode)
	calls := make([]map[string]interface{}, 0, len(toolUses))
	for _, tu := range toolUses {
		args, err := json.Marshal(tu.Input)
		if err != nil {
			args = []byte("{}")
		}
		calls = append(calls, map[string]interface{}{
			"id":   tu.ID,
			"type": wrapper,
			wrapper: map[string]interface{}{
				"name":      tu.Name,
				"arguments": string(args),
			},
		})
	}
	entry := map[string]interface{}{
		"role":       "assistant",
		"content":    text,
		"tool_calls": calls,
	}
	return entry
}

// convertToolResults re-expresses tool-result blocks per the configured
// tool-result role: a dedicated tool-role message carrying the call id, a
// user message wrapping the result in a tagged block, or a block-style
// user message with a typed tool_result entry.
func convertToolResults(msg llm.Message, cfg Config) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type != llm.ContentBlockTypeToolResult || block.ToolResult == nil {
			continue
		}
		tr := block.ToolResult
		switch {
		case cfg.Messages.ToolResultRole == "tool":
			out = append(out, map[string]interface{}{
				"role":         "tool",
				"tool_call_id": tr.ID,
				"content":      tr.Content,
			})
		case cfg.Messages.ToolResultWrapperTag != "":
			tag := cfg.Messages.ToolResultWrapperTag
			out = append(out, map[string]interface{}{
				"role":    cfg.Messages.ToolResultRole,
				"content": fmt.Sprintf("<%s id=%q>%s</%s>", tag, tr.ID, tr.Content, tag),
			})
		default:
			entry := map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": tr.ID,
				"content":     tr.Content,
			}
			if tr.IsError {
				entry["is_error"] = true
			}
			out = append(out, map[string]interface{}{
				"role":    cfg.Messages.ToolResultRole,
				"content": []map[string]interface{}{entry},
			})
		}
	}
	return out
}
