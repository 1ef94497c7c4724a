package adapter

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestParsePathEmpty(t *testing.T) {
	p := ParsePath("")
	if !p.IsZero() {
		t.Error("Expected empty path to be zero")
	}
	if res := p.Lookup(gjson.Parse(`{"a":1}`)); res.Exists() {
		t.Error("Expected zero path to resolve to nothing")
	}
}

func TestPathLookupNested(t *testing.T) {
	doc := gjson.Parse(`{"choices":[{"delta":{"content":"hi"}}]}`)
	p := ParsePath("choices.0.delta.content")
	if got := p.StringValue(doc); got != "hi" {
		t.Errorf("Expected 'hi', got %q", got)
	}
}

func TestPathLookupMissing(t *testing.T) {
	doc := gjson.Parse(`{"a":{"b":1}}`)
	p := ParsePath("a.c.d")
	if res := p.Lookup(doc); res.Exists() {
		t.Error("Expected missing path to be non-existent")
	}
	if got := p.StringValue(doc); got != "" {
		t.Errorf("Expected empty string for missing path, got %q", got)
	}
	if got := p.IntValue(doc); got != 0 {
		t.Errorf("Expected 0 for missing path, got %d", got)
	}
}

func TestPathIntValue(t *testing.T) {
	doc := gjson.Parse(`{"usage":{"prompt_tokens":42}}`)
	if got := ParsePath("usage.prompt_tokens").IntValue(doc); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestPathArrayIndex(t *testing.T) {
	doc := gjson.Parse(`{"parts":[{"text":"first"},{"text":"second"}]}`)
	if got := ParsePath("parts.1.text").StringValue(doc); got != "second" {
		t.Errorf("Expected 'second', got %q", got)
	}
}

func TestPathLookupBytes(t *testing.T) {
	res := ParsePath("a.b").LookupBytes([]byte(`{"a":{"b":"x"}}`))
	if res.String() != "x" {
		t.Errorf("Expected 'x', got %q", res.String())
	}
}

func TestPathString(t *testing.T) {
	if got := ParsePath("a.b.c").String(); got != "a.b.c" {
		t.Errorf("Expected original form back, got %q", got)
	}
}
