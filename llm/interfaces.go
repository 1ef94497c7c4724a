package llm

import (
	"context"
)

// Client provides a provider-neutral interface for making LLM API calls.
// One implementation exists per protocol family (OpenAI-style,
// Anthropic-style, Gemini-style, config-driven custom HTTP, Ollama);
// each handles its wire format internally.
type Client interface {
	// Synchronous sends a request and returns a complete response.
	// This is for non-streaming use cases.
	Synchronous(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a request and returns a stream of events.
	// The caller should read from the returned Stream until it's done or
	// an error occurs. Cancelling ctx stops the underlying network read.
	Stream(ctx context.Context, req *Request) (Stream, error)
}

// Stream represents a streaming response from an LLM.
// At most one terminal condition is observed: either Next returns false
// with Err() == nil (normal stop) or with a non-nil Err().
type Stream interface {
	// Next advances to the next event in the stream.
	// Returns false when the stream is complete or an error occurs.
	Next() bool

	// Event returns the current event.
	// Should only be called after Next() returns true.
	Event() *StreamEvent

	// Err returns any error that occurred during streaming.
	Err() error

	// Close closes the stream and releases resources.
	Close() error
}
