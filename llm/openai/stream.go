package openai

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/sse"
)

// stream implements the llm.Stream interface for OpenAI streaming
// responses. A producer goroutine receives SDK chunks, runs tool-call
// fragments through the shared assembler, and delivers normalized
// events over a channel.
type stream struct {
	ctx    context.Context
	events chan *llm.StreamEvent
	quit   chan struct{}

	current *llm.StreamEvent

	mu     sync.Mutex
	err    error
	closed bool

	sdk *openai.ChatCompletionStream
}

func newStream(ctx context.Context, sdk *openai.ChatCompletionStream, logger zerolog.Logger) *stream {
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
	var usage *llm.Usage

	for {
		response, err := s.sdk.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				err = ctxErr
			} else {
				err = convertError(err)
			}
			s.setErr(err)
			return
		}

		// The final usage chunk arrives with an empty choices list.
		if response.Usage != nil && response.Usage.TotalTokens > 0 {
			usage = &llm.Usage{
				InputTokens:  int64(response.Usage.PromptTokens),
				OutputTokens: int64(response.Usage.CompletionTokens),
				TotalTokens:  int64(response.Usage.TotalTokens),
			}
		}
		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			ok := s.emit(&llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeText,
					Text: choice.Delta.Content,
				},
			})
			if !ok {
				return
			}
		}
		if choice.Delta.ReasoningContent != "" {
			ok := s.emit(&llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeReasoning,
					Text: choice.Delta.ReasoningContent,
				},
			})
			if !ok {
				return
			}
		}

		for _, toolDelta := range choice.Delta.ToolCalls {
			index := assembler.LastIndex()
			if toolDelta.Index != nil {
				index = *toolDelta.Index
			}
			if index < 0 {
				index = assembler.NextIndex()
			}
			if !assembler.IsOpen(index) {
				if !s.emit(assembler.Open(index, toolDelta.ID, toolDelta.Function.Name)) {
					return
				}
			} else if toolDelta.Function.Name != "" {
				assembler.AppendName(index, toolDelta.Function.Name)
			}
			if toolDelta.Function.Arguments != "" {
				if event := assembler.AppendArgs(index, toolDelta.Function.Arguments); event != nil {
					if !s.emit(event) {
						return
					}
				}
			}
		}
	}

	if s.ctx.Err() != nil {
		s.setErr(s.ctx.Err())
		return
	}

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
