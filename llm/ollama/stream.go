package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/sse"
)

// errStreamClosed aborts the Chat callback loop after Close.
var errStreamClosed = fmt.Errorf("stream closed")

// stream implements the llm.Stream interface for Ollama streaming
// responses. Ollama delivers chunks through a callback; a producer
// goroutine runs the chat call and forwards normalized events over a
// channel. Tool calls arrive complete in a single chunk, so each one
// passes through the assembler as an open/delta/finalize triple.
type stream struct {
	ctx    context.Context
	events chan *llm.StreamEvent
	quit   chan struct{}

	current *llm.StreamEvent

	mu     sync.Mutex
	err    error
	closed bool
}

func newStream(ctx context.Context, client *api.Client, chatReq *api.ChatRequest, logger zerolog.Logger) *stream {
	s := &stream{
		ctx:    ctx,
		events: make(chan *llm.StreamEvent, 16),
		quit:   make(chan struct{}),
	}
	go s.run(client, chatReq, logger)
	return s
}

func (s *stream) run(client *api.Client, chatReq *api.ChatRequest, logger zerolog.Logger) {
	defer close(s.events)

	if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStart}) {
		return
	}

	assembler := sse.NewAssembler(logger)
	var usage *llm.Usage

	err := client.Chat(s.ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			ok := s.emit(&llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeText,
					Text: resp.Message.Content,
				},
			})
			if !ok {
				return errStreamClosed
			}
		}
		if resp.Message.Thinking != "" {
			ok := s.emit(&llm.StreamEvent{
				Type: llm.StreamEventTypeContentDelta,
				Delta: &llm.StreamDelta{
					Type: llm.StreamDeltaTypeReasoning,
					Text: resp.Message.Thinking,
				},
			})
			if !ok {
				return errStreamClosed
			}
		}

		for _, toolCall := range resp.Message.ToolCalls {
			args, err := json.Marshal(toolCall.Function.Arguments)
			if err != nil {
				return fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			index := assembler.NextIndex()
			if !s.emit(assembler.Open(index, "", toolCall.Function.Name)) {
				return errStreamClosed
			}
			if event := assembler.ReplaceArgs(index, string(args)); event != nil {
				if !s.emit(event) {
					return errStreamClosed
				}
			}
			if event := assembler.Close(index); event != nil {
				if !s.emit(event) {
					return errStreamClosed
				}
			}
		}

		if resp.Done {
			usage = &llm.Usage{
				InputTokens:  int64(resp.PromptEvalCount),
				OutputTokens: int64(resp.EvalCount),
				TotalTokens:  int64(resp.PromptEvalCount + resp.EvalCount),
			}
		}
		return nil
	})

	if err != nil && err != errStreamClosed {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = llm.Classify(err)
		}
		s.setErr(err)
		return
	}
	if err == errStreamClosed {
		return
	}
	if s.ctx.Err() != nil {
		s.setErr(s.ctx.Err())
		return
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
	return nil
}

var _ llm.Stream = (*stream)(nil)
