// Package llm provides a provider-neutral abstraction layer for Large
// Language Model (LLM) APIs.
//
// This package defines the common types, interfaces, and error taxonomy
// that allow callers to talk to multiple incompatible LLM HTTP APIs
// (OpenAI-style, Anthropic-style, Gemini-style, and arbitrary
// config-described vendors) through one uniform contract.
//
// # Core Concepts
//
//  1. Messages: the Message type represents a conversation message with a
//     role (user, assistant, system, tool) and content blocks (text,
//     images, tool use, tool results).
//
//  2. Tools: ToolSpec represents a tool definition handed to the model;
//     ToolUseBlock/ToolResultBlock represent invocations and results.
//
//  3. Client interface: Synchronous() for non-streaming calls and
//     Stream() for streaming calls. One implementation exists per
//     protocol family; subpackages hold the drivers.
//
//  4. Streams: StreamEvent carries text deltas, reasoning deltas,
//     tool-call lifecycle events (open, argument fragment, finalize),
//     and usage. A stream delivers at most one terminal condition.
//
//  5. Errors: the Error type normalizes heterogeneous transport, HTTP,
//     and SDK failures into a closed taxonomy with an advisory Retryable
//     flag. Classify and FromStatus are the only entry points; nothing in
//     this module ever performs a retry.
//
//  6. Middleware: WrapWithMiddleware decorates any Client with
//     cross-cutting hooks (logging, accounting) without touching the
//     drivers.
//
// # Adding a provider
//
// To add a new protocol family, implement Client in a subpackage,
// translate between the wire shape and this package's types, and map
// failures through FromStatus/Classify. Vendors that merely deviate in
// field naming do not need code at all: the custom driver is configured
// entirely through adapter field paths.
package llm
