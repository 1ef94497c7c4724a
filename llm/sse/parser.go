package sse

import (
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/adapter"
)

// Parser is the incremental state machine that turns raw SSE data
// payloads into normalized stream events, driven entirely by configured
// field paths. One Parser serves one request.
type Parser struct {
	paths adapter.ResponsePaths

	contentPath          adapter.Path
	reasoningPath        adapter.Path
	toolCallsPath        adapter.Path
	toolIDPath           adapter.Path
	toolNamePath         adapter.Path
	toolArgsPath         adapter.Path
	toolIndexPath        adapter.Path
	promptTokensPath     adapter.Path
	completionTokensPath adapter.Path
	totalTokensPath      adapter.Path

	asm      *Assembler
	usage    *llm.Usage
	finished bool
	logger   zerolog.Logger
}

// NewParser creates a parser for one streaming request.
func NewParser(paths adapter.ResponsePaths, logger zerolog.Logger) *Parser {
	return &Parser{
		paths:                paths,
		contentPath:          adapter.ParsePath(paths.ContentPath),
		reasoningPath:        adapter.ParsePath(paths.ReasoningPath),
		toolCallsPath:        adapter.ParsePath(paths.ToolCallsPath),
		toolIDPath:           adapter.ParsePath(paths.ToolIDPath),
		toolNamePath:         adapter.ParsePath(paths.ToolNamePath),
		toolArgsPath:         adapter.ParsePath(paths.ToolArgsPath),
		toolIndexPath:        adapter.ParsePath(paths.ToolIndexPath),
		promptTokensPath:     adapter.ParsePath(paths.PromptTokensPath),
		completionTokensPath: adapter.ParsePath(paths.CompletionTokensPath),
		totalTokensPath:      adapter.ParsePath(paths.TotalTokensPath),
		asm:                  NewAssembler(logger),
		logger:               logger,
	}
}

// Feed consumes one SSE data payload and returns the normalized events
// it produced. Malformed payloads are logged and skipped; a single bad
// chunk never fails the stream.
func (p *Parser) Feed(payload []byte) []*llm.StreamEvent {
	if p.finished {
		return nil
	}
	if !gjson.ValidBytes(payload) {
		p.logger.Debug().Str("payload", string(payload)).Msg("Skipping non-JSON stream chunk")
		return nil
	}
	chunk := gjson.ParseBytes(payload)

	var events []*llm.StreamEvent

	if text := p.contentPath.StringValue(chunk); text != "" {
		events = append(events, &llm.StreamEvent{
			Type:  llm.StreamEventTypeContentDelta,
			Delta: &llm.StreamDelta{Type: llm.StreamDeltaTypeText, Text: text},
		})
	}

	if reasoning := p.reasoningPath.StringValue(chunk); reasoning != "" {
		events = append(events, &llm.StreamEvent{
			Type:  llm.StreamEventTypeContentDelta,
			Delta: &llm.StreamDelta{Type: llm.StreamDeltaTypeReasoning, Text: reasoning},
		})
	}

	p.captureUsage(chunk)

	if toolCalls := p.toolCallsPath.Lookup(chunk); toolCalls.IsArray() {
		toolCalls.ForEach(func(_, elem gjson.Result) bool {
			events = append(events, p.feedToolDelta(elem)...)
			return true
		})
	}

	return events
}

// feedToolDelta routes one element of the tool-call delta array: a delta
// carrying a new id opens a call, deltas addressing an open index append
// name and argument fragments.
func (p *Parser) feedToolDelta(elem gjson.Result) []*llm.StreamEvent {
	id := p.toolIDPath.StringValue(elem)
	name := p.toolNamePath.StringValue(elem)

	index := -1
	if !p.toolIndexPath.IsZero() {
		if res := p.toolIndexPath.Lookup(elem); res.Exists() {
			index = int(res.Int())
		}
	}

	var events []*llm.StreamEvent
	opening := false
	switch {
	case index >= 0:
		// Index-keyed dialect: a new index (or a fresh id at one) opens.
		if !p.asm.IsOpen(index) {
			opening = true
		}
	case id != "" || name != "":
		// No index on the wire: every id/name-bearing delta is a new call.
		index = p.asm.NextIndex()
		opening = true
	default:
		// Bare argument fragment: belongs to the most recent call.
		index = p.asm.LastIndex()
		if index < 0 {
			p.logger.Debug().Msg("Skipping tool-call fragment with no open call")
			return nil
		}
	}

	if opening {
		events = append(events, p.asm.Open(index, id, name))
	} else if id == "" && name != "" {
		p.asm.AppendName(index, name)
	}

	if p.paths.ArgsAreObject {
		if args := p.toolArgsPath.Lookup(elem); args.Exists() {
			if event := p.asm.ReplaceArgs(index, args.Raw); event != nil {
				events = append(events, event)
			}
		}
	} else if fragment := p.toolArgsPath.StringValue(elem); fragment != "" {
		if event := p.asm.AppendArgs(index, fragment); event != nil {
			events = append(events, event)
		}
	}

	return events
}

func (p *Parser) captureUsage(chunk gjson.Result) {
	prompt := p.promptTokensPath.Lookup(chunk)
	completion := p.completionTokensPath.Lookup(chunk)
	total := p.totalTokensPath.Lookup(chunk)
	if !prompt.Exists() && !completion.Exists() && !total.Exists() {
		return
	}
	if p.usage == nil {
		p.usage = &llm.Usage{}
	}
	if prompt.Exists() {
		p.usage.InputTokens = prompt.Int()
	}
	if completion.Exists() {
		p.usage.OutputTokens = completion.Int()
	}
	if total.Exists() {
		p.usage.TotalTokens = total.Int()
	} else {
		p.usage.TotalTokens = p.usage.InputTokens + p.usage.OutputTokens
	}
}

// Finish finalizes every tool call still open and emits the terminal
// events: per-call finalizations, a usage message delta when usage was
// seen, and the stop event. Finish is idempotent.
func (p *Parser) Finish() []*llm.StreamEvent {
	if p.finished {
		return nil
	}
	p.finished = true

	events := p.asm.CloseAll()
	if p.usage != nil {
		events = append(events, &llm.StreamEvent{
			Type:  llm.StreamEventTypeMessageDelta,
			Usage: p.usage,
		})
	}
	events = append(events, &llm.StreamEvent{
		Type:  llm.StreamEventTypeStop,
		Usage: p.usage,
		Done:  true,
	})
	return events
}

// Usage returns the usage accumulated so far, or nil.
func (p *Parser) Usage() *llm.Usage {
	return p.usage
}
