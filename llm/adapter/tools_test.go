package adapter

import (
	"testing"

	"github.com/crosstalk-ai/crosstalk/llm"
)

var searchTool = llm.ToolSpec{
	Name:        "search",
	Description: "Find documents",
	Schema: llm.ToolSchema{
		Properties: map[string]interface{}{
			"q": map[string]interface{}{"type": "string"},
		},
		Required: []string{"q"},
	},
}

func TestConvertToolWrapFunction(t *testing.T) {
	out := ConvertTool(searchTool, Defaults(FamilyOpenAI))
	if out["type"] != "function" {
		t.Errorf("Expected type tag, got %v", out["type"])
	}
	fn, ok := out["function"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected function wrapper")
	}
	if fn["name"] != "search" || fn["description"] != "Find documents" {
		t.Errorf("Expected name/description inside wrapper, got %v", fn)
	}
	schema, ok := fn["parameters"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected schema under parameters")
	}
	if schema["type"] != "object" {
		t.Errorf("Expected schema type object, got %v", schema["type"])
	}
}

func TestConvertToolWrapNone(t *testing.T) {
	out := ConvertTool(searchTool, Defaults(FamilyAnthropic))
	if out["name"] != "search" {
		t.Errorf("Expected flat tool shape, got %v", out)
	}
	if _, wrapped := out["function"]; wrapped {
		t.Error("Expected no wrapper for WrapNone")
	}
	if _, ok := out["input_schema"].(map[string]interface{}); !ok {
		t.Errorf("Expected schema under input_schema, got %v", out)
	}
}

func TestConvertToolParameterFieldDefault(t *testing.T) {
	cfg := Defaults(FamilyCustom)
	cfg.Tools.WrapMode = WrapNone
	cfg.Tools.ParameterField = ""
	out := ConvertTool(searchTool, cfg)
	if _, ok := out["parameters"]; !ok {
		t.Errorf("Expected parameters as the default field name, got %v", out)
	}
}

func TestConvertToolOmitsEmptyDescription(t *testing.T) {
	spec := llm.ToolSpec{Name: "noop"}
	out := ConvertTool(spec, Defaults(FamilyAnthropic))
	if _, ok := out["description"]; ok {
		t.Error("Expected empty description to be omitted")
	}
}

func TestConvertToolsOrder(t *testing.T) {
	specs := []llm.ToolSpec{{Name: "a"}, {Name: "b"}}
	out := ConvertTools(specs, Defaults(FamilyAnthropic))
	if len(out) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(out))
	}
	if out[0]["name"] != "a" || out[1]["name"] != "b" {
		t.Error("Expected tools converted in order")
	}
}
