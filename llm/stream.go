package llm

// StreamDelta represents a single delta in a streaming response.
type StreamDelta struct {
	Type      StreamDeltaType
	Text      string        // For text and reasoning deltas
	ToolUse   *ToolUseBlock // For tool use start and finalization
	ToolInput string        // For tool input JSON fragments
}

// StreamDeltaType represents the type of streaming delta.
type StreamDeltaType string

const (
	StreamDeltaTypeText      StreamDeltaType = "text"
	StreamDeltaTypeReasoning StreamDeltaType = "reasoning"
	StreamDeltaTypeToolUse   StreamDeltaType = "tool_use"
	StreamDeltaTypeToolInput StreamDeltaType = "tool_input"
)

// StreamEvent represents a complete streaming event.
type StreamEvent struct {
	Type  StreamEventType
	Delta *StreamDelta
	Usage *Usage
	Done  bool
}

// StreamEventType represents the type of streaming event.
type StreamEventType string

const (
	StreamEventTypeStart        StreamEventType = "start"
	StreamEventTypeContentBlock StreamEventType = "content_block"
	StreamEventTypeContentDelta StreamEventType = "content_delta"
	// StreamEventTypeContentStop finalizes a tool call: Delta.ToolUse
	// carries the parsed arguments.
	StreamEventTypeContentStop StreamEventType = "content_stop"
	StreamEventTypeMessageDelta StreamEventType = "message_delta"
	StreamEventTypeStop         StreamEventType = "stop"
)

// CollectStream drains a Stream into a complete Response.
// Drivers without a native non-streaming path use this to implement
// Synchronous on top of Stream.
func CollectStream(stream Stream) (*Response, error) {
	defer stream.Close()

	resp := &Response{}
	for stream.Next() {
		event := stream.Event()
		if event == nil {
			continue
		}
		if event.Usage != nil {
			resp.Usage = event.Usage
		}
		if event.Delta == nil {
			continue
		}
		switch event.Delta.Type {
		case StreamDeltaTypeText:
			if event.Delta.Text == "" {
				continue
			}
			// Extend the trailing text block rather than one block per delta.
			if n := len(resp.Content); n > 0 && resp.Content[n-1].Type == ContentBlockTypeText {
				resp.Content[n-1].Text += event.Delta.Text
			} else {
				resp.Content = append(resp.Content, ContentBlock{
					Type: ContentBlockTypeText,
					Text: event.Delta.Text,
				})
			}
		case StreamDeltaTypeReasoning:
			resp.Reasoning += event.Delta.Text
		case StreamDeltaTypeToolUse:
			if event.Type == StreamEventTypeContentStop && event.Delta.ToolUse != nil {
				resp.Content = append(resp.Content, ContentBlock{
					Type:    ContentBlockTypeToolUse,
					ToolUse: event.Delta.ToolUse,
				})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
