package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// ToContents converts unified messages into Gemini content entries.
// Gemini has no system or tool role: system text travels out-of-band in
// systemInstruction, assistant maps to "model", and tool results become
// user-role functionResponse parts matched by function name.
func ToContents(msgs []llm.Message) ([]map[string]interface{}, error) {
	contents := make([]map[string]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			// Handled by the caller via systemInstruction.
			continue
		case llm.RoleUser:
			parts, err := toUserParts(msg)
			if err != nil {
				return nil, err
			}
			contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})
		case llm.RoleAssistant:
			contents = append(contents, map[string]interface{}{"role": "model", "parts": toModelParts(msg)})
		case llm.RoleTool:
			parts := toFunctionResponseParts(msg, msgs)
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})
			}
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return contents, nil
}

func toUserParts(msg llm.Message) ([]map[string]interface{}, error) {
	parts := make([]map[string]interface{}, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			parts = append(parts, map[string]interface{}{"text": block.Text})
		case llm.ContentBlockTypeImage:
			if block.Image == nil {
				continue
			}
			parts = append(parts, map[string]interface{}{
				"inlineData": map[string]interface{}{
					"mimeType": block.Image.MediaType,
					"data":     block.Image.Source,
				},
			})
		default:
			return nil, fmt.Errorf("unsupported block type %q in user message", block.Type)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, map[string]interface{}{"text": ""})
	}
	return parts, nil
}

func toModelParts(msg llm.Message) []map[string]interface{} {
	parts := make([]map[string]interface{}, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			if block.Text != "" {
				parts = append(parts, map[string]interface{}{"text": block.Text})
			}
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				continue
			}
			args := block.ToolUse.Input
			if args == nil {
				args = map[string]interface{}{}
			}
			parts = append(parts, map[string]interface{}{
				"functionCall": map[string]interface{}{
					"name": block.ToolUse.Name,
					"args": args,
				},
			})
		}
	}
	if len(parts) == 0 {
		parts = append(parts, map[string]interface{}{"text": ""})
	}
	return parts
}

// toFunctionResponseParts re-expresses tool results. Gemini matches
// responses by function name, not call id, so the name is recovered from
// the assistant tool call the result answers.
func toFunctionResponseParts(msg llm.Message, all []llm.Message) []map[string]interface{} {
	var parts []map[string]interface{}
	for _, block := range msg.Content {
		if block.Type != llm.ContentBlockTypeToolResult || block.ToolResult == nil {
			continue
		}
		tr := block.ToolResult
		name := toolNameForCall(all, tr.ID)
		if name == "" {
			name = tr.ID
		}

		var response map[string]interface{}
		if err := json.Unmarshal([]byte(tr.Content), &response); err != nil {
			response = map[string]interface{}{"result": tr.Content}
		}
		if tr.IsError {
			response["error"] = true
		}
		parts = append(parts, map[string]interface{}{
			"functionResponse": map[string]interface{}{
				"name":     name,
				"response": response,
			},
		})
	}
	return parts
}

// toolNameForCall finds the name of the assistant tool call with the
// given id anywhere earlier in the conversation.
func toolNameForCall(msgs []llm.Message, id string) string {
	for _, msg := range msgs {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		for _, block := range msg.Content {
			if block.Type == llm.ContentBlockTypeToolUse && block.ToolUse != nil && block.ToolUse.ID == id {
				return block.ToolUse.Name
			}
		}
	}
	return ""
}

// ToTools converts tool definitions into a Gemini tools entry with
// function declarations.
func ToTools(tools []llm.ToolSpec) []map[string]interface{} {
	if len(tools) == 0 {
		return nil
	}
	declarations := lo.Map(tools, func(spec llm.ToolSpec, _ int) map[string]interface{} {
		decl := map[string]interface{}{
			"name":       spec.Name,
			"parameters": spec.Schema.AsMap(),
		}
		if spec.Description != "" {
			decl["description"] = spec.Description
		}
		return decl
	})
	return []map[string]interface{}{
		{"functionDeclarations": declarations},
	}
}
