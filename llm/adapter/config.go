// Package adapter holds the declarative protocol-adapter configuration:
// request templates, response field paths, and message/tool formatting
// rules. A Config fully describes how to speak to one vendor; the three
// hardwired protocol families ship with defaults equal to the vendors'
// documented streaming formats, and arbitrary vendors are described by
// supplying a Config of their own.
package adapter

import (
	"fmt"

	"dario.cat/mergo"
)

// ProtocolFamily identifies one of the wire dialects.
type ProtocolFamily string

const (
	FamilyOpenAI    ProtocolFamily = "openai"
	FamilyAnthropic ProtocolFamily = "anthropic"
	FamilyGemini    ProtocolFamily = "gemini"
	FamilyCustom    ProtocolFamily = "custom"
)

// SystemMode selects how system text reaches the wire.
type SystemMode string

const (
	// SystemInline emits system text as a dedicated system-role entry in
	// the wire message list.
	SystemInline SystemMode = "inline"
	// SystemParameter returns system text out-of-band for the driver to
	// place in a protocol-specific top-level field.
	SystemParameter SystemMode = "parameter"
	// SystemMergeFirstUser prefixes system text onto the first user
	// message, once.
	SystemMergeFirstUser SystemMode = "merge_first_user"
)

// WrapMode selects how a tool schema is wrapped on the wire.
type WrapMode string

const (
	WrapNone     WrapMode = "none"
	WrapFunction WrapMode = "function"
	WrapTool     WrapMode = "tool"
)

// Config is the immutable, declarative description of one provider's wire
// dialect. Once constructed it is used read-only by many concurrent
// requests.
type Config struct {
	Family   ProtocolFamily  `yaml:"family"`
	Request  RequestTemplate `yaml:"request"`
	Response ResponsePaths   `yaml:"response"`
	Messages MessageFormat   `yaml:"messages"`
	Tools    ToolFormat      `yaml:"tools"`
}

// RequestTemplate describes how to build the outgoing HTTP request.
// Header values may contain the literal {{api_key}}, replaced at send
// time. BodyTemplate is a JSON document the driver fills in by setting
// the configured field paths.
type RequestTemplate struct {
	Endpoint     string            `yaml:"endpoint"`
	Method       string            `yaml:"method"`
	Headers      map[string]string `yaml:"headers"`
	BodyTemplate string            `yaml:"body_template"`

	// Field paths written into the body template.
	ModelPath       string `yaml:"model_path"`
	MessagesPath    string `yaml:"messages_path"`
	SystemPath      string `yaml:"system_path"` // used with SystemParameter mode
	ToolsPath       string `yaml:"tools_path"`
	StreamPath      string `yaml:"stream_path"`
	MaxTokensPath   string `yaml:"max_tokens_path"`
	TemperaturePath string `yaml:"temperature_path"`
	TopPPath        string `yaml:"top_p_path"`
}

// ResponsePaths locates the interesting values inside each streamed chunk.
// Paths are dot-separated key/index sequences resolved against the chunk
// JSON; ToolIDPath, ToolNamePath, ToolArgsPath, and ToolIndexPath are
// resolved relative to each element of the tool-call array.
type ResponsePaths struct {
	ContentPath   string `yaml:"content_path"`
	ReasoningPath string `yaml:"reasoning_path"`

	ToolCallsPath string `yaml:"tool_calls_path"`
	ToolIDPath    string `yaml:"tool_id_path"`
	ToolNamePath  string `yaml:"tool_name_path"`
	ToolArgsPath  string `yaml:"tool_args_path"`
	ToolIndexPath string `yaml:"tool_index_path"`
	// ArgsAreObject selects replace semantics for argument deltas that
	// arrive as structured objects instead of string fragments.
	ArgsAreObject bool `yaml:"args_are_object"`

	PromptTokensPath     string `yaml:"prompt_tokens_path"`
	CompletionTokensPath string `yaml:"completion_tokens_path"`
	TotalTokensPath      string `yaml:"total_tokens_path"`

	// DataPrefix is the SSE line prefix carrying payloads; lines without
	// it are ignored. DoneMarker terminates the stream.
	DataPrefix string `yaml:"data_prefix"`
	DoneMarker string `yaml:"done_marker"`
}

// MessageFormat describes how unified messages are re-expressed.
type MessageFormat struct {
	SystemMode SystemMode `yaml:"system_mode"`
	// ToolResultRole is the wire role carrying tool results ("tool" for
	// function-call dialects, "user" for block-oriented ones).
	ToolResultRole string `yaml:"tool_result_role"`
	// ToolResultWrapperTag, when set, wraps tool-result text in
	// <tag id="...">...</tag> inside a user message instead of a typed
	// field.
	ToolResultWrapperTag string `yaml:"tool_result_wrapper_tag"`
}

// ToolFormat describes how tool definitions are wrapped.
type ToolFormat struct {
	WrapMode       WrapMode `yaml:"wrap_mode"`
	ParameterField string   `yaml:"parameter_field"`
	IncludeTypeTag bool     `yaml:"include_type_tag"`
}

// Defaults returns the built-in configuration for a protocol family,
// equivalent to the vendor's documented streaming format. FamilyCustom
// defaults to the OpenAI-compatible shape, which is what most vendor
// variants deviate from.
func Defaults(family ProtocolFamily) Config {
	switch family {
	case FamilyAnthropic:
		return Config{
			Family: FamilyAnthropic,
			Request: RequestTemplate{
				Endpoint:      "/v1/messages",
				Method:        "POST",
				Headers:       map[string]string{"x-api-key": "{{api_key}}", "anthropic-version": "2023-06-01"},
				BodyTemplate:  "{}",
				ModelPath:     "model",
				MessagesPath:  "messages",
				SystemPath:    "system",
				ToolsPath:     "tools",
				StreamPath:    "stream",
				MaxTokensPath: "max_tokens",
			},
			Response: ResponsePaths{
				ContentPath:          "delta.text",
				ReasoningPath:        "delta.thinking",
				PromptTokensPath:     "usage.input_tokens",
				CompletionTokensPath: "usage.output_tokens",
				DataPrefix:           "data:",
			},
			Messages: MessageFormat{
				SystemMode:           SystemParameter,
				ToolResultRole:       "user",
				ToolResultWrapperTag: "",
			},
			Tools: ToolFormat{
				WrapMode:       WrapNone,
				ParameterField: "input_schema",
			},
		}
	case FamilyGemini:
		return Config{
			Family: FamilyGemini,
			Request: RequestTemplate{
				Endpoint:        ":streamGenerateContent?alt=sse",
				Method:          "POST",
				Headers:         map[string]string{"x-goog-api-key": "{{api_key}}"},
				BodyTemplate:    "{}",
				MessagesPath:    "contents",
				SystemPath:      "systemInstruction",
				ToolsPath:       "tools",
				MaxTokensPath:   "generationConfig.maxOutputTokens",
				TemperaturePath: "generationConfig.temperature",
				TopPPath:        "generationConfig.topP",
			},
			Response: ResponsePaths{
				ContentPath:          "candidates.0.content.parts.0.text",
				ToolCallsPath:        "candidates.0.content.parts",
				ToolNamePath:         "functionCall.name",
				ToolArgsPath:         "functionCall.args",
				ArgsAreObject:        true,
				PromptTokensPath:     "usageMetadata.promptTokenCount",
				CompletionTokensPath: "usageMetadata.candidatesTokenCount",
				TotalTokensPath:      "usageMetadata.totalTokenCount",
				DataPrefix:           "data:",
			},
			Messages: MessageFormat{
				SystemMode:     SystemParameter,
				ToolResultRole: "user",
			},
			Tools: ToolFormat{
				WrapMode:       WrapNone,
				ParameterField: "parameters",
			},
		}
	default: // FamilyOpenAI and FamilyCustom
		return Config{
			Family: family,
			Request: RequestTemplate{
				Endpoint:        "/v1/chat/completions",
				Method:          "POST",
				Headers:         map[string]string{"Authorization": "Bearer {{api_key}}"},
				BodyTemplate:    "{}",
				ModelPath:       "model",
				MessagesPath:    "messages",
				ToolsPath:       "tools",
				StreamPath:      "stream",
				MaxTokensPath:   "max_tokens",
				TemperaturePath: "temperature",
				TopPPath:        "top_p",
			},
			Response: ResponsePaths{
				ContentPath:          "choices.0.delta.content",
				ReasoningPath:        "choices.0.delta.reasoning_content",
				ToolCallsPath:        "choices.0.delta.tool_calls",
				ToolIDPath:           "id",
				ToolNamePath:         "function.name",
				ToolArgsPath:         "function.arguments",
				ToolIndexPath:        "index",
				PromptTokensPath:     "usage.prompt_tokens",
				CompletionTokensPath: "usage.completion_tokens",
				TotalTokensPath:      "usage.total_tokens",
				DataPrefix:           "data:",
				DoneMarker:           "[DONE]",
			},
			Messages: MessageFormat{
				SystemMode:     SystemInline,
				ToolResultRole: "tool",
			},
			Tools: ToolFormat{
				WrapMode:       WrapFunction,
				ParameterField: "parameters",
				IncludeTypeTag: true,
			},
		}
	}
}

// Resolve merges a possibly partial user configuration over the family
// defaults and returns the effective configuration. A nil config yields
// the plain defaults for the family.
//
// Zero-valued override fields inherit the family default; an override
// cannot clear a non-zero default back to its zero value (e.g.
// ArgsAreObject=false over the gemini family, or an empty DoneMarker
// over openai). A dialect that needs such a field unset should start
// from the family whose defaults already match — typically custom,
// which carries the OpenAI shape and overrides freely from there.
func Resolve(family ProtocolFamily, override *Config) (Config, error) {
	cfg := Defaults(family)
	if override == nil {
		return cfg, nil
	}
	merged := *override
	merged.Family = family
	if err := mergo.Merge(&merged, cfg); err != nil {
		return Config{}, fmt.Errorf("failed to merge adapter config: %w", err)
	}
	return merged, nil
}
