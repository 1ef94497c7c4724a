package anthropic

import (
	"context"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/sse"
)

// stream implements the llm.Stream interface for Anthropic streaming
// responses. A producer goroutine translates SDK events into the
// normalized form, running tool-call input through the shared assembler
// keyed by Anthropic's content block index.
type stream struct {
	ctx    context.Context
	events chan *llm.StreamEvent
	quit   chan struct{}

	current *llm.StreamEvent

	mu     sync.Mutex
	err    error
	closed bool

	sdk *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func newStream(ctx context.Context, sdk *ssestream.Stream[anthropic.MessageStreamEventUnion], logger zerolog.Logger) *stream {
	s := &stream{
		ctx:    ctx,
		events: make(chan *llm.StreamEvent, 16),
		quit:   make(chan struct{}),
		sdk:    sdk,
	}
	go s.run(logger)
	return s
}

func (s *stream) run(logger zerolog.Logger) {
	defer close(s.events)
	defer s.sdk.Close()

	if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStart}) {
		return
	}

	assembler := sse.NewAssembler(logger)
	usage := &llm.Usage{}
	stopped := false

	for s.sdk.Next() {
		if s.ctx.Err() != nil {
			s.setErr(s.ctx.Err())
			return
		}
		event := s.sdk.Current()

		switch evt := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			usage.InputTokens = evt.Message.Usage.InputTokens

		case anthropic.ContentBlockStartEvent:
			if block, ok := evt.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				if !s.emit(assembler.Open(int(evt.Index), block.ID, block.Name)) {
					return
				}
			}

		case anthropic.ContentBlockDeltaEvent:
			switch d := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if d.Text == "" {
					continue
				}
				ok := s.emit(&llm.StreamEvent{
					Type: llm.StreamEventTypeContentDelta,
					Delta: &llm.StreamDelta{
						Type: llm.StreamDeltaTypeText,
						Text: d.Text,
					},
				})
				if !ok {
					return
				}
			case anthropic.ThinkingDelta:
				if d.Thinking == "" {
					continue
				}
				ok := s.emit(&llm.StreamEvent{
					Type: llm.StreamEventTypeContentDelta,
					Delta: &llm.StreamDelta{
						Type: llm.StreamDeltaTypeReasoning,
						Text: d.Thinking,
					},
				})
				if !ok {
					return
				}
			case anthropic.InputJSONDelta:
				if d.PartialJSON == "" {
					continue
				}
				if event := assembler.AppendArgs(int(evt.Index), d.PartialJSON); event != nil {
					if !s.emit(event) {
						return
					}
				}
			}

		case anthropic.ContentBlockStopEvent:
			if event := assembler.CloseBlock(int(evt.Index)); event != nil {
				if !s.emit(event) {
					return
				}
			}

		case anthropic.MessageDeltaEvent:
			usage.OutputTokens = evt.Usage.OutputTokens
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens

		case anthropic.MessageStopEvent:
			for _, event := range assembler.CloseAll() {
				if !s.emit(event) {
					return
				}
			}
			if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeMessageDelta, Usage: usage}) {
				return
			}
			if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStop, Usage: usage, Done: true}) {
				return
			}
			stopped = true
		}
	}

	if err := s.sdk.Err(); err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = convertError(err)
		}
		s.setErr(err)
		return
	}
	if s.ctx.Err() != nil {
		s.setErr(s.ctx.Err())
		return
	}

	// Providers are expected to send message_stop, but don't rely on it.
	if !stopped {
		for _, event := range assembler.CloseAll() {
			if !s.emit(event) {
				return
			}
		}
		if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeMessageDelta, Usage: usage}) {
			return
		}
		s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStop, Usage: usage, Done: true})
	}
}

func (s *stream) emit(event *llm.StreamEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-s.ctx.Done():
		s.setErr(s.ctx.Err())
		return false
	case <-s.quit:
		return false
	}
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Next implements llm.Stream.
func (s *stream) Next() bool {
	event, ok := <-s.events
	if !ok {
		return false
	}
	s.current = event
	return true
}

// Event implements llm.Stream.
func (s *stream) Event() *llm.StreamEvent {
	return s.current
}

// Err implements llm.Stream.
func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements llm.Stream. It is safe to call more than once.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	return s.sdk.Close()
}

var _ llm.Stream = (*stream)(nil)
