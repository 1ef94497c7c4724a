package sse

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// Stream adapts an HTTP response body to the llm.Stream interface: a
// producer goroutine pumps the body through Scanner and Parser and
// delivers normalized events over a channel. The context is observed at
// every delivery, so cancellation stops the stream between reads.
type Stream struct {
	ctx    context.Context
	events chan *llm.StreamEvent
	quit   chan struct{}

	current *llm.StreamEvent

	mu     sync.Mutex
	err    error
	closed bool

	body   io.ReadCloser
	logger zerolog.Logger
}

// NewStream starts consuming body through parser and returns the stream.
// Ownership of body transfers to the stream; it is closed when the
// producer finishes or Close is called.
func NewStream(ctx context.Context, body io.ReadCloser, parser *Parser, dataPrefix, doneMarker string, logger zerolog.Logger) *Stream {
	s := &Stream{
		ctx:    ctx,
		events: make(chan *llm.StreamEvent, 16),
		quit:   make(chan struct{}),
		body:   body,
		logger: logger,
	}
	go s.run(parser, dataPrefix, doneMarker)
	return s
}

func (s *Stream) run(parser *Parser, dataPrefix, doneMarker string) {
	defer close(s.events)
	defer s.body.Close()

	if !s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStart}) {
		return
	}

	scanner := NewScanner(s.body, dataPrefix, doneMarker)
	for {
		payload, ok := scanner.Next()
		if !ok {
			break
		}
		if s.ctx.Err() != nil {
			s.setErr(s.ctx.Err())
			return
		}
		for _, event := range parser.Feed(payload) {
			if !s.emit(event) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		s.setErr(err)
		return
	}
	if s.ctx.Err() != nil {
		s.setErr(s.ctx.Err())
		return
	}

	for _, event := range parser.Finish() {
		if !s.emit(event) {
			return
		}
	}
}

// emit delivers one event unless the stream has been cancelled or closed.
func (s *Stream) emit(event *llm.StreamEvent) bool {
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

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Next implements llm.Stream.
func (s *Stream) Next() bool {
	event, ok := <-s.events
	if !ok {
		return false
	}
	s.current = event
	return true
}

// Event implements llm.Stream.
func (s *Stream) Event() *llm.StreamEvent {
	return s.current
}

// Err implements llm.Stream.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements llm.Stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	return s.body.Close()
}

var _ llm.Stream = (*Stream)(nil)
