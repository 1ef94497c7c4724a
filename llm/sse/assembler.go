package sse

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/jsonrepair"
)

// inProgressCall is the mutable accumulator for one streamed tool call.
// It is promoted to an immutable ToolUseBlock only at finalization.
type inProgressCall struct {
	id     string
	name   string
	args   strings.Builder
	closed bool
}

// Assembler tracks in-progress tool calls keyed by stream index and
// emits their lifecycle events: open, argument delta, finalize.
type Assembler struct {
	calls  map[int]*inProgressCall
	order  []int
	last   int // index of the most recently opened call
	logger zerolog.Logger
}

// NewAssembler creates an empty assembler.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{
		calls:  make(map[int]*inProgressCall),
		last:   -1,
		logger: logger,
	}
}

// Open starts a new in-progress call at index and returns its start
// event. Providers that never emit call ids get one synthesized so the
// caller-facing contract always carries an id.
func (a *Assembler) Open(index int, id, name string) *llm.StreamEvent {
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	call := &inProgressCall{id: id, name: name}
	a.calls[index] = call
	a.order = append(a.order, index)
	a.last = index

	return &llm.StreamEvent{
		Type: llm.StreamEventTypeContentBlock,
		Delta: &llm.StreamDelta{
			Type: llm.StreamDeltaTypeToolUse,
			ToolUse: &llm.ToolUseBlock{
				ID:   call.id,
				Name: call.name,
			},
		},
	}
}

// IsOpen reports whether a call exists at index and has not been closed.
func (a *Assembler) IsOpen(index int) bool {
	call, ok := a.calls[index]
	return ok && !call.closed
}

// NextIndex returns a fresh index for providers that carry neither ids
// nor indices on their deltas.
func (a *Assembler) NextIndex() int {
	return len(a.order)
}

// LastIndex returns the index of the most recently opened call, or -1.
func (a *Assembler) LastIndex() int {
	return a.last
}

// AppendName extends the name of the call at index; streamed names can
// arrive in fragments.
func (a *Assembler) AppendName(index int, fragment string) {
	if call, ok := a.calls[index]; ok && !call.closed {
		call.name += fragment
	}
}

// AppendArgs appends a raw argument-text fragment to the call at index
// and returns the corresponding delta event, or nil if no call is open.
func (a *Assembler) AppendArgs(index int, fragment string) *llm.StreamEvent {
	call, ok := a.calls[index]
	if !ok || call.closed {
		return nil
	}
	call.args.WriteString(fragment)
	return a.deltaEvent(call, fragment)
}

// ReplaceArgs replaces the accumulated argument text with a complete raw
// JSON object (providers whose deltas are structured objects replace
// rather than concatenate).
func (a *Assembler) ReplaceArgs(index int, rawJSON string) *llm.StreamEvent {
	call, ok := a.calls[index]
	if !ok || call.closed {
		return nil
	}
	call.args.Reset()
	call.args.WriteString(rawJSON)
	return a.deltaEvent(call, rawJSON)
}

func (a *Assembler) deltaEvent(call *inProgressCall, fragment string) *llm.StreamEvent {
	return &llm.StreamEvent{
		Type: llm.StreamEventTypeContentDelta,
		Delta: &llm.StreamDelta{
			Type:      llm.StreamDeltaTypeToolInput,
			ToolInput: fragment,
			ToolUse: &llm.ToolUseBlock{
				ID:   call.id,
				Name: call.name,
			},
		},
	}
}

// Close finalizes the call at index, parsing (and if necessary
// repairing) its accumulated arguments. An unrecoverable argument string
// drops the call with a logged diagnostic; the rest of the stream stays
// valid.
func (a *Assembler) Close(index int) *llm.StreamEvent {
	return a.finalize(index, false)
}

// CloseBlock finalizes the call at index for block-delimited protocols,
// where an explicit stop boundary marks the call as complete: an
// unrecoverable argument string falls back to an empty object instead of
// dropping the call.
func (a *Assembler) CloseBlock(index int) *llm.StreamEvent {
	return a.finalize(index, true)
}

func (a *Assembler) finalize(index int, emptyOnFailure bool) *llm.StreamEvent {
	call, ok := a.calls[index]
	if !ok || call.closed {
		return nil
	}
	call.closed = true

	input, err := jsonrepair.Parse(call.args.String())
	if err != nil {
		diag := a.logger.Warn().
			Str("tool_call_id", call.id).
			Str("tool_name", call.name).
			Int("args_len", call.args.Len()).
			Err(err)
		if !emptyOnFailure {
			diag.Msg("Dropping tool call with unrecoverable arguments")
			return nil
		}
		diag.Msg("Finalizing tool call with empty arguments")
		input = map[string]interface{}{}
	}

	return &llm.StreamEvent{
		Type: llm.StreamEventTypeContentStop,
		Delta: &llm.StreamDelta{
			Type: llm.StreamDeltaTypeToolUse,
			ToolUse: &llm.ToolUseBlock{
				ID:    call.id,
				Name:  call.name,
				Input: input,
			},
		},
	}
}

// CloseAll finalizes every call still open, in open order, and returns
// their finalize events. Dropped calls produce no event.
func (a *Assembler) CloseAll() []*llm.StreamEvent {
	var events []*llm.StreamEvent
	for _, idx := range a.order {
		if event := a.Close(idx); event != nil {
			events = append(events, event)
		}
	}
	return events
}
