package sse

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
)

func TestAssemblerOpenAppendClose(t *testing.T) {
	a := NewAssembler(zerolog.Nop())

	start := a.Open(0, "c1", "lookup")
	if start.Type != llm.StreamEventTypeContentBlock {
		t.Errorf("Expected content_block event on open, got %v", start.Type)
	}
	if start.Delta.ToolUse.ID != "c1" || start.Delta.ToolUse.Name != "lookup" {
		t.Errorf("Expected id/name on start event, got %+v", start.Delta.ToolUse)
	}

	d1 := a.AppendArgs(0, `{"q":`)
	d2 := a.AppendArgs(0, `"cats"}`)
	if d1 == nil || d2 == nil {
		t.Fatal("Expected delta events for both fragments")
	}
	if d1.Delta.Type != llm.StreamDeltaTypeToolInput {
		t.Errorf("Expected tool_input delta type, got %v", d1.Delta.Type)
	}

	end := a.Close(0)
	if end == nil {
		t.Fatal("Expected finalize event")
	}
	if end.Type != llm.StreamEventTypeContentStop {
		t.Errorf("Expected content_stop event, got %v", end.Type)
	}
	if end.Delta.ToolUse.Input["q"] != "cats" {
		t.Errorf("Expected parsed arguments q=cats, got %v", end.Delta.ToolUse.Input)
	}
}

func TestAssemblerSynthesizesID(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	start := a.Open(0, "", "lookup")
	id := start.Delta.ToolUse.ID
	if id == "" {
		t.Fatal("Expected a synthesized call id")
	}
	if !strings.HasPrefix(id, "call_") {
		t.Errorf("Expected synthesized id with call_ prefix, got %q", id)
	}
}

func TestAssemblerFragmentationEquivalence(t *testing.T) {
	// Any way of splitting a valid arguments string must finalize to the
	// same parsed object.
	full := `{"query":"cats and dogs","limit":5}`
	splits := [][]string{
		{full},
		{`{"query":"cats `, `and dogs","limit":5}`},
		{`{`, `"query"`, `:`, `"cats and dogs"`, `,"limit":`, `5}`},
	}

	for _, parts := range splits {
		a := NewAssembler(zerolog.Nop())
		a.Open(0, "c1", "search")
		for _, part := range parts {
			a.AppendArgs(0, part)
		}
		end := a.Close(0)
		if end == nil {
			t.Fatalf("Expected finalize event for split %v", parts)
		}
		input := end.Delta.ToolUse.Input
		if input["query"] != "cats and dogs" {
			t.Errorf("Split %v: expected query preserved, got %v", parts, input["query"])
		}
		if input["limit"] != float64(5) {
			t.Errorf("Split %v: expected limit=5, got %v", parts, input["limit"])
		}
	}
}

func TestAssemblerReplaceArgs(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "lookup")
	a.ReplaceArgs(0, `{"q":"partial"}`)
	a.ReplaceArgs(0, `{"q":"cats"}`)
	end := a.Close(0)
	if end == nil {
		t.Fatal("Expected finalize event")
	}
	if end.Delta.ToolUse.Input["q"] != "cats" {
		t.Errorf("Expected replace semantics to keep only the last object, got %v", end.Delta.ToolUse.Input)
	}
}

func TestAssemblerDropsUnrecoverableCall(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "lookup")
	a.AppendArgs(0, "definitely not json")
	if event := a.Close(0); event != nil {
		t.Errorf("Expected unrecoverable call to be dropped, got event %+v", event)
	}
	// Closing again is a no-op.
	if event := a.Close(0); event != nil {
		t.Error("Expected second close to be a no-op")
	}
}

func TestAssemblerCloseBlockKeepsCallWithEmptyArgs(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "lookup")
	a.AppendArgs(0, `{"q": }`)

	// A block-delimited stop finalizes the call even when the arguments
	// are unrecoverable.
	end := a.CloseBlock(0)
	if end == nil {
		t.Fatal("Expected finalize event for block stop")
	}
	if end.Type != llm.StreamEventTypeContentStop {
		t.Errorf("Expected content_stop event, got %v", end.Type)
	}
	if end.Delta.ToolUse.ID != "c1" || end.Delta.ToolUse.Name != "lookup" {
		t.Errorf("Expected call identity preserved, got %+v", end.Delta.ToolUse)
	}
	if end.Delta.ToolUse.Input == nil || len(end.Delta.ToolUse.Input) != 0 {
		t.Errorf("Expected empty argument object, got %v", end.Delta.ToolUse.Input)
	}
}

func TestAssemblerCloseBlockParsesValidArgs(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "lookup")
	a.AppendArgs(0, `{"q":"cats"}`)
	end := a.CloseBlock(0)
	if end == nil {
		t.Fatal("Expected finalize event")
	}
	if end.Delta.ToolUse.Input["q"] != "cats" {
		t.Errorf("Expected parsed arguments, got %v", end.Delta.ToolUse.Input)
	}
	// Closing again is a no-op.
	if event := a.CloseBlock(0); event != nil {
		t.Error("Expected second block close to be a no-op")
	}
}

func TestAssemblerCloseAllInOpenOrder(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "first")
	a.AppendArgs(0, `{}`)
	a.Open(1, "c2", "second")
	a.AppendArgs(1, `{}`)

	events := a.CloseAll()
	if len(events) != 2 {
		t.Fatalf("Expected 2 finalize events, got %d", len(events))
	}
	if events[0].Delta.ToolUse.Name != "first" || events[1].Delta.ToolUse.Name != "second" {
		t.Error("Expected finalize events in open order")
	}
}

func TestAssemblerEmptyArgsParseAsEmptyObject(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	a.Open(0, "c1", "noop")
	end := a.Close(0)
	if end == nil {
		t.Fatal("Expected finalize event for call with no arguments")
	}
	if len(end.Delta.ToolUse.Input) != 0 {
		t.Errorf("Expected empty input map, got %v", end.Delta.ToolUse.Input)
	}
}

func TestAssemblerIndexHelpers(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	if a.LastIndex() != -1 {
		t.Errorf("Expected last index -1 on empty assembler, got %d", a.LastIndex())
	}
	if a.NextIndex() != 0 {
		t.Errorf("Expected next index 0, got %d", a.NextIndex())
	}
	a.Open(0, "c1", "x")
	if a.LastIndex() != 0 {
		t.Errorf("Expected last index 0, got %d", a.LastIndex())
	}
	if !a.IsOpen(0) {
		t.Error("Expected index 0 to be open")
	}
	if a.IsOpen(3) {
		t.Error("Expected index 3 to be closed")
	}
}
