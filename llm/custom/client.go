// Package custom implements the config-driven HTTP driver: a protocol
// described entirely by an adapter.Config — request template, field
// paths, message and tool formats — with no vendor-specific code.
package custom

import (
	"bytes"
	"context"
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

// Client implements the llm.Client interface for arbitrary vendor HTTP
// APIs described by an adapter configuration.
type Client struct {
	httpClient *http.Client
	cfg        adapter.Config
	baseURL    string
	apiKey     string
	model      string // Default model to use if not specified in request
	logger     zerolog.Logger
}

// NewClient creates a config-driven client. baseURL is required; cfg is
// the resolved adapter configuration for the vendor.
func NewClient(baseURL, apiKey, model string, cfg adapter.Config, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger.With().Str("component", "customDriver").Logger(),
	}, nil
}

// Synchronous implements llm.Client.Synchronous by draining the stream;
// one set of response field paths serves both modes.
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

	body, err := buildBody(req, model, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	parser := sse.NewParser(c.cfg.Response, c.logger)
	return sse.NewStream(ctx, resp.Body, parser, c.cfg.Response.DataPrefix, c.cfg.Response.DoneMarker, c.logger), nil
}

func (c *Client) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	method := c.cfg.Request.Method
	if method == "" {
		method = http.MethodPost
	}
	url := c.baseURL + c.cfg.Request.Endpoint

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for key, value := range c.cfg.Request.Headers {
		httpReq.Header.Set(key, strings.ReplaceAll(value, "{{api_key}}", c.apiKey))
	}
	return httpReq, nil
}

// statusError reads the error body and maps the HTTP status onto the
// normalized taxonomy.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	message := extractErrorMessage(raw)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return llm.FromStatus(resp.StatusCode, message, nil)
}

func extractErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	doc := gjson.ParseBytes(body)
	for _, path := range []string{"error.message", "message", "error"} {
		if res := doc.Get(path); res.Exists() && res.Type == gjson.String {
			return res.String()
		}
	}
	return strings.TrimSpace(string(body))
}
