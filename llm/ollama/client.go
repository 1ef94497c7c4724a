// Package ollama implements the llm.Client interface for local models
// served by Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
)

// Client implements the llm.Client interface for Ollama's API.
type Client struct {
	client *api.Client
	model  string // Default model to use if not specified in request
	logger zerolog.Logger
}

// NewClient creates a new Ollama client.
// If host is empty, the client is configured from the environment
// (OLLAMA_HOST or http://localhost:11434).
func NewClient(host, model string, logger zerolog.Logger) (*Client, error) {
	var client *api.Client

	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		client = api.NewClient(baseURL, &http.Client{})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	return &Client{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "ollamaDriver").Logger(),
	}, nil
}

// parseHost parses a host string into a URL, defaulting the scheme to http.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// buildRequest assembles the chat request shared by both paths.
func (c *Client) buildRequest(req *llm.Request, streaming bool) (*api.ChatRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	msgs, err := ToMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	if req.System != "" {
		msgs = append([]api.Message{{Role: "system", Content: req.System}}, msgs...)
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &streaming,
		Options:  make(map[string]interface{}),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ToTools(req.Tools)
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		chatReq.Options["top_p"] = *req.TopP
	}

	return chatReq, nil
}

// Synchronous implements llm.Client.Synchronous.
func (c *Client) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	var chatResp api.ChatResponse
	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, llm.Classify(err)
	}

	content := make([]llm.ContentBlock, 0)
	if chatResp.Message.Content != "" {
		content = append(content, llm.ContentBlock{
			Type: llm.ContentBlockTypeText,
			Text: chatResp.Message.Content,
		})
	}
	for _, toolCall := range chatResp.Message.ToolCalls {
		content = append(content, llm.ContentBlock{
			Type:    llm.ContentBlockTypeToolUse,
			ToolUse: FromToolCall(toolCall),
		})
	}

	usage := &llm.Usage{
		InputTokens:  int64(chatResp.PromptEvalCount),
		OutputTokens: int64(chatResp.EvalCount),
		TotalTokens:  int64(chatResp.PromptEvalCount + chatResp.EvalCount),
	}

	stopReason := chatResp.DoneReason
	if stopReason == "" {
		stopReason = "stop"
	}

	return &llm.Response{
		Content:    content,
		Usage:      usage,
		StopReason: stopReason,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildRequest(req, true)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, c.client, chatReq, c.logger), nil
}

var _ llm.Client = (*Client)(nil)
