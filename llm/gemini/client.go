// Package gemini implements the llm.Client interface for Google's
// generativelanguage REST API. Gemini has no official Go SDK in use
// here; requests are hand-built and the streamed response is parsed by
// the shared field-path machinery under the Gemini family defaults.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/adapter"
	"github.com/crosstalk-ai/crosstalk/llm/sse"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the llm.Client interface for Gemini's API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string // Default model to use if not specified in request
	paths      adapter.ResponsePaths
	logger     zerolog.Logger
}

// NewClient creates a new Gemini client with the given API key.
// If baseURL is empty, the public generativelanguage endpoint is used.
func NewClient(apiKey, baseURL, model string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		paths:      adapter.Defaults(adapter.FamilyGemini).Response,
		logger:     logger.With().Str("component", "geminiDriver").Logger(),
	}, nil
}

// Synchronous implements llm.Client.Synchronous by draining the stream.
func (c *Client) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	stream, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.CollectStream(stream)
}

// Stream implements llm.Client.Stream.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	body, err := buildBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		message := gjson.GetBytes(raw, "error.message").String()
		if message == "" {
			message = fmt.Sprintf("gemini request failed with status %d", resp.StatusCode)
		}
		return nil, llm.FromStatus(resp.StatusCode, message, nil)
	}

	parser := sse.NewParser(c.paths, c.logger)
	return sse.NewStream(ctx, resp.Body, parser, c.paths.DataPrefix, c.paths.DoneMarker, c.logger), nil
}

// buildBody assembles the generateContent request payload.
func buildBody(req *llm.Request) ([]byte, error) {
	contents, err := ToContents(req.Messages)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{"contents": contents}

	system := collectSystem(req)
	if system != "" {
		payload["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": system}},
		}
	}
	if tools := ToTools(req.Tools); tools != nil {
		payload["tools"] = tools
	}

	generation := map[string]interface{}{}
	if req.MaxTokens > 0 {
		generation["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		generation["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		generation["topP"] = *req.TopP
	}
	if len(generation) > 0 {
		payload["generationConfig"] = generation
	}

	return json.Marshal(payload)
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
