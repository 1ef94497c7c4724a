// Package openai implements the llm.Client interface for OpenAI's chat
// completions API and for the many vendors that speak the same dialect.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// Client implements the llm.Client interface for OpenAI's API.
type Client struct {
	client *openai.Client
	model  string // Default model to use if not specified in request
	logger zerolog.Logger
}

// NewClient creates a new OpenAI client.
// If baseURL is empty, the default OpenAI API endpoint is used, which
// also makes this driver serve OpenAI-compatible vendors.
func NewClient(apiKey, baseURL, model, organization string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.With().Str("component", "openaiDriver").Logger(),
	}, nil
}

// buildRequest assembles the chat completion request shared by both the
// synchronous and streaming paths.
func (c *Client) buildRequest(req *llm.Request) (openai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return openai.ChatCompletionRequest{}, fmt.Errorf("model is required")
	}

	msgs, err := ToMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}

	// OpenAI carries the system prompt as a leading system-role message.
	if req.System != "" {
		systemMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		}
		chatReq.Messages = append([]openai.ChatCompletionMessage{systemMsg}, msgs...)
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = ToTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		chatReq.TopP = float32(*req.TopP)
	}

	return chatReq, nil
}

// Synchronous implements llm.Client.Synchronous.
func (c *Client) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertError(err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := chatResp.Choices[0]
	content := make([]llm.ContentBlock, 0)
	if choice.Message.Content != "" {
		content = append(content, llm.ContentBlock{
			Type: llm.ContentBlockTypeText,
			Text: choice.Message.Content,
		})
	}
	for _, toolCall := range choice.Message.ToolCalls {
		content = append(content, llm.ContentBlock{
			Type:    llm.ContentBlockTypeToolUse,
			ToolUse: FromToolCall(toolCall),
		})
	}

	usage := &llm.Usage{
		InputTokens:  int64(chatResp.Usage.PromptTokens),
		OutputTokens: int64(chatResp.Usage.CompletionTokens),
		TotalTokens:  int64(chatResp.Usage.TotalTokens),
	}

	stopReason := "stop"
	switch choice.FinishReason {
	case openai.FinishReasonLength:
		stopReason = "max_tokens"
	case openai.FinishReasonToolCalls:
		stopReason = "tool_calls"
	}

	return &llm.Response{
		Content:    content,
		Reasoning:  choice.Message.ReasoningContent,
		Usage:      usage,
		StopReason: stopReason,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertError(err)
	}
	return newStream(ctx, stream, c.logger), nil
}

// convertError maps OpenAI SDK errors onto the normalized taxonomy.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.FromStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return llm.Classify(err)
}

var _ llm.Client = (*Client)(nil)
