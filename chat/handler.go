package chat

import (
	"github.com/crosstalk-ai/crosstalk/llm"
)

// Handler receives the callbacks for one chat turn. Exactly one of
// OnComplete or OnError fires per turn, after every other callback for
// that turn has been delivered.
type Handler interface {
	OnText(text string)
	OnReasoning(text string)
	OnToolCallStart(id, name string)
	OnToolCallDelta(id, fragment string)
	OnToolCallEnd(call llm.ToolUseBlock)
	OnComplete(result *llm.Result)
	OnError(err *llm.Error)
}

// HandlerFuncs adapts a set of optional functions to the Handler
// interface. Nil functions are skipped.
type HandlerFuncs struct {
	Text          func(text string)
	Reasoning     func(text string)
	ToolCallStart func(id, name string)
	ToolCallDelta func(id, fragment string)
	ToolCallEnd   func(call llm.ToolUseBlock)
	Complete      func(result *llm.Result)
	Error         func(err *llm.Error)
}

func (h HandlerFuncs) OnText(text string) {
	if h.Text != nil {
		h.Text(text)
	}
}

func (h HandlerFuncs) OnReasoning(text string) {
	if h.Reasoning != nil {
		h.Reasoning(text)
	}
}

func (h HandlerFuncs) OnToolCallStart(id, name string) {
	if h.ToolCallStart != nil {
		h.ToolCallStart(id, name)
	}
}

func (h HandlerFuncs) OnToolCallDelta(id, fragment string) {
	if h.ToolCallDelta != nil {
		h.ToolCallDelta(id, fragment)
	}
}

func (h HandlerFuncs) OnToolCallEnd(call llm.ToolUseBlock) {
	if h.ToolCallEnd != nil {
		h.ToolCallEnd(call)
	}
}

func (h HandlerFuncs) OnComplete(result *llm.Result) {
	if h.Complete != nil {
		h.Complete(result)
	}
}

func (h HandlerFuncs) OnError(err *llm.Error) {
	if h.Error != nil {
		h.Error(err)
	}
}

var _ Handler = HandlerFuncs{}
