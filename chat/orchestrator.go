// Package chat is the public entry point of the bridge: it accepts one
// conversation turn at a time, owns the cancellation token for the
// in-flight request, fans the normalized stream out to caller
// callbacks, and guarantees exactly one terminal callback per turn.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/config"
	"github.com/crosstalk-ai/crosstalk/llm"
)

// Resolver yields a client for a provider configuration. Satisfied by
// provider.Cache.
type Resolver interface {
	Resolve(id string, cfg *config.LLMConfig) (llm.Client, error)
}

// Orchestrator drives one conversation turn at a time. Each turn owns
// an independent cancellation token; Abort targets the most recently
// started turn.
type Orchestrator struct {
	resolver Resolver
	logger   zerolog.Logger

	mu     sync.Mutex
	active *activeTurn
}

// activeTurn identifies one in-flight request's cancellation token, so
// a finishing turn only clears its own registration and never cancels a
// turn started after it.
type activeTurn struct {
	cancel context.CancelFunc
}

// NewOrchestrator creates an orchestrator resolving clients through the
// given resolver.
func NewOrchestrator(resolver Resolver, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		logger:   logger.With().Str("component", "chatOrchestrator").Logger(),
	}
}

// Abort cancels the current in-flight request. It is idempotent and a
// no-op when nothing is outstanding.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	handle := o.active
	o.active = nil
	o.mu.Unlock()

	if handle != nil {
		handle.cancel()
	}
}

// Send runs one conversation turn, delivering callbacks to the handler
// as the response streams in. It blocks until the terminal callback has
// fired. Cancellation surfaces as an aborted error; a panic escaping
// the driver is reported as unknown rather than crashing the caller.
func (o *Orchestrator) Send(ctx context.Context, providerID string, cfg *config.LLMConfig, req *llm.Request, handler Handler) {
	ctx, cancel := context.WithCancel(ctx)
	handle := &activeTurn{cancel: cancel}

	o.mu.Lock()
	o.active = handle
	o.mu.Unlock()

	defer func() {
		cancel()
		// Only clear our own registration: a turn started after this
		// one owns its own token.
		o.mu.Lock()
		if o.active == handle {
			o.active = nil
		}
		o.mu.Unlock()
	}()

	t := &turn{handler: handler, logger: o.logger}
	defer t.recoverPanic()

	client, err := o.resolver.Resolve(providerID, cfg)
	if err != nil {
		t.fail(llm.Classify(err))
		return
	}

	fillRequestDefaults(req, cfg)

	if req.Stream {
		o.sendStreaming(ctx, client, req, t)
		return
	}
	o.sendSynchronous(ctx, client, req, t)
}

// fillRequestDefaults applies provider-level defaults to fields the
// caller left unset.
func fillRequestDefaults(req *llm.Request, cfg *config.LLMConfig) {
	if cfg == nil {
		return
	}
	if req.Model == "" {
		req.Model = cfg.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	if req.Temperature == nil {
		req.Temperature = cfg.Temperature
	}
	if req.TopP == nil {
		req.TopP = cfg.TopP
	}
}

func (o *Orchestrator) sendSynchronous(ctx context.Context, client llm.Client, req *llm.Request, t *turn) {
	resp, err := client.Synchronous(ctx, req)
	if err != nil {
		t.fail(llm.Classify(err))
		return
	}
	result := resp.ToResult()
	// Tool calls get the same callback surface as the streaming path
	// before the terminal completion fires.
	for _, call := range result.ToolCalls {
		t.handler.OnToolCallStart(call.ID, call.Name)
		t.handler.OnToolCallEnd(call)
	}
	t.complete(result)
}

func (o *Orchestrator) sendStreaming(ctx context.Context, client llm.Client, req *llm.Request, t *turn) {
	stream, err := client.Stream(ctx, req)
	if err != nil {
		t.fail(llm.Classify(err))
		return
	}
	defer stream.Close()

	var content strings.Builder
	var reasoning strings.Builder
	var toolCalls []llm.ToolUseBlock
	var usage *llm.Usage

	for stream.Next() {
		if ctx.Err() != nil {
			break
		}
		event := stream.Event()
		if event == nil {
			continue
		}
		if event.Usage != nil {
			usage = event.Usage
		}
		if event.Delta == nil {
			continue
		}

		switch event.Delta.Type {
		case llm.StreamDeltaTypeText:
			if event.Delta.Text != "" {
				content.WriteString(event.Delta.Text)
				t.handler.OnText(event.Delta.Text)
			}
		case llm.StreamDeltaTypeReasoning:
			if event.Delta.Text != "" {
				reasoning.WriteString(event.Delta.Text)
				t.handler.OnReasoning(event.Delta.Text)
			}
		case llm.StreamDeltaTypeToolUse:
			if event.Delta.ToolUse == nil {
				continue
			}
			switch event.Type {
			case llm.StreamEventTypeContentBlock:
				t.handler.OnToolCallStart(event.Delta.ToolUse.ID, event.Delta.ToolUse.Name)
			case llm.StreamEventTypeContentStop:
				toolCalls = append(toolCalls, *event.Delta.ToolUse)
				t.handler.OnToolCallEnd(*event.Delta.ToolUse)
			}
		case llm.StreamDeltaTypeToolInput:
			if event.Delta.ToolUse != nil {
				t.handler.OnToolCallDelta(event.Delta.ToolUse.ID, event.Delta.ToolInput)
			}
		}
	}

	if err := stream.Err(); err != nil {
		t.fail(llm.Classify(err))
		return
	}
	if ctx.Err() != nil {
		t.fail(llm.Classify(ctx.Err()))
		return
	}

	result := &llm.Result{
		Content:   content.String(),
		Reasoning: reasoning.String(),
		ToolCalls: toolCalls,
		Usage:     usage,
	}
	t.complete(result)
}

// turn tracks terminal-callback state for one request.
type turn struct {
	handler  Handler
	logger   zerolog.Logger
	finished bool
}

func (t *turn) complete(result *llm.Result) {
	if t.finished {
		return
	}
	t.finished = true
	t.handler.OnComplete(result)
}

func (t *turn) fail(err *llm.Error) {
	if t.finished {
		return
	}
	t.finished = true
	t.logger.Debug().Str("kind", string(err.Type)).Bool("retryable", err.Retryable).Msg("Chat turn failed")
	t.handler.OnError(err)
}

// recoverPanic converts a panic escaping the driver into a terminal
// unknown error.
func (t *turn) recoverPanic() {
	if r := recover(); r != nil {
		t.logger.Error().Interface("panic", r).Msg("Recovered panic in chat turn")
		t.fail(&llm.Error{
			Type:    llm.ErrorTypeUnknown,
			Message: "internal error during chat turn",
		})
	}
}
