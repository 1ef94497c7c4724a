// Package anthropic implements the llm.Client interface for Anthropic's
// messages API using the official SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/llm"
)

const defaultMaxTokens = 4096

// Client implements the llm.Client interface for Anthropic's API.
type Client struct {
	client *anthropic.Client
	model  string // Default model to use if not specified in request
	logger zerolog.Logger
}

// NewClient creates a new Anthropic client with the given API key.
// If baseURL is empty, the public Anthropic endpoint is used.
func NewClient(apiKey, baseURL, model string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Client{
		client: &client,
		model:  model,
		logger: logger.With().Str("component", "anthropicDriver").Logger(),
	}, nil
}

// buildParams assembles the messages API params shared by both the
// synchronous and streaming paths.
func (c *Client) buildParams(req *llm.Request) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return anthropic.MessageNewParams{}, fmt.Errorf("model is required")
	}

	msgs, err := ToMessageParams(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system := collectSystem(req); system != "" {
		params.System = buildSystemBlocks(system)
	}
	if len(req.Tools) > 0 {
		params.Tools = ToToolUnionParams(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}

	return params, nil
}

// Synchronous implements llm.Client.Synchronous.
func (c *Client) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}

	content := make([]llm.ContentBlock, 0, len(message.Content))
	for _, blockUnion := range message.Content {
		if block, ok := FromContentBlock(blockUnion); ok {
			content = append(content, block)
		}
	}

	usage := &llm.Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
		TotalTokens:  message.Usage.InputTokens + message.Usage.OutputTokens,
	}
	c.logCacheStats(message.Usage.CacheCreationInputTokens, message.Usage.CacheReadInputTokens, usage.InputTokens)

	return &llm.Response{
		Content:    content,
		Usage:      usage,
		StopReason: string(message.StopReason),
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	sdkStream := c.client.Messages.NewStreaming(ctx, params)
	return newStream(ctx, sdkStream, c.logger), nil
}

// buildSystemBlocks creates system text blocks with prompt caching
// enabled. Placing cache_control on the system block caches the full
// prefix: tools, system, and messages up to and including the block.
func buildSystemBlocks(systemPrompt string) []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{
		{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
	}
}

// collectSystem joins the caller-supplied system prompt and any
// system-role messages, in order.
func collectSystem(req *llm.Request) string {
	parts := make([]string, 0, 2)
	if req.System != "" {
		parts = append(parts, req.System)
	}
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			if text := msg.TextContent(); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func (c *Client) logCacheStats(cacheCreation, cacheRead, inputTokens int64) {
	if cacheCreation == 0 && cacheRead == 0 {
		return
	}
	cacheEfficiency := float64(0)
	if inputTokens > 0 {
		cacheEfficiency = float64(cacheRead) / float64(inputTokens) * 100
	}
	c.logger.Debug().
		Int64("input_tokens", inputTokens).
		Int64("cache_creation_tokens", cacheCreation).
		Int64("cache_read_tokens", cacheRead).
		Float64("cache_efficiency", cacheEfficiency).
		Msg("Prompt cache stats")
}

// convertError maps Anthropic SDK errors onto the normalized taxonomy.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus(apiErr.StatusCode, apiErr.Error(), err)
	}
	return llm.Classify(err)
}

var _ llm.Client = (*Client)(nil)
