package adapter

import (
	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/samber/lo"
)

// ConvertTools translates tool definitions into the wire shape described
// by cfg: the JSON schema goes under the configured parameter field name,
// optionally nested in a function/tool wrapper with a type discriminator.
func ConvertTools(tools []llm.ToolSpec, cfg Config) []map[string]interface{} {
	return lo.Map(tools, func(spec llm.ToolSpec, _ int) map[string]interface{} {
		return ConvertTool(spec, cfg)
	})
}

// ConvertTool translates a single tool definition.
func ConvertTool(spec llm.ToolSpec, cfg Config) map[string]interface{} {
	paramField := cfg.Tools.ParameterField
	if paramField == "" {
		paramField = "parameters"
	}

	inner := map[string]interface{}{
		"name":      spec.Name,
		paramField:  spec.Schema.AsMap(),
	}
	if spec.Description != "" {
		inner["description"] = spec.Description
	}

	if cfg.Tools.WrapMode == WrapNone {
		return inner
	}

	wrapper := string(cfg.Tools.WrapMode)
	outer := map[string]interface{}{wrapper: inner}
	if cfg.Tools.IncludeTypeTag {
		outer["type"] = wrapper
	}
	return outer
}
