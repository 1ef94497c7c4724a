// Package provider builds and caches llm.Client instances from
// provider configuration.
package provider

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/config"
	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/adapter"
	"github.com/crosstalk-ai/crosstalk/llm/anthropic"
	"github.com/crosstalk-ai/crosstalk/llm/custom"
	"github.com/crosstalk-ai/crosstalk/llm/gemini"
	"github.com/crosstalk-ai/crosstalk/llm/ollama"
	"github.com/crosstalk-ai/crosstalk/llm/openai"
)

// Registry constructs llm.Client instances for configured providers.
type Registry struct {
	logger zerolog.Logger
}

// NewRegistry creates a new Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "providerRegistry").Logger(),
	}
}

// Build creates a fresh client for the given provider configuration.
func (r *Registry) Build(id string, cfg *config.LLMConfig) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider %q: config is required", id)
	}
	if err := config.Validate(id, cfg); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Timeout) * time.Second

	var client llm.Client
	var err error
	switch cfg.Provider {
	case "anthropic":
		client, err = anthropic.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, r.logger)
	case "openai":
		client, err = openai.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Organization, r.logger)
	case "gemini":
		client, err = gemini.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout, r.logger)
	case "ollama":
		client, err = ollama.NewClient(cfg.BaseURL, cfg.Model, r.logger)
	case "custom":
		adapterCfg, aerr := resolveAdapter(cfg)
		if aerr != nil {
			return nil, fmt.Errorf("provider %q: %w", id, aerr)
		}
		client, err = custom.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, adapterCfg, timeout, r.logger)
	default:
		return nil, fmt.Errorf("provider %q: unknown provider type %q", id, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.WrapWithMiddleware(client, llm.NewLoggingMiddleware(r.logger)), nil
}

// resolveAdapter merges the configured protocol overrides over the
// family defaults. A custom provider without an adapter section speaks
// the OpenAI dialect.
func resolveAdapter(cfg *config.LLMConfig) (adapter.Config, error) {
	family := adapter.FamilyOpenAI
	if cfg.Adapter != nil && cfg.Adapter.Family != "" {
		family = cfg.Adapter.Family
	}
	return adapter.Resolve(family, cfg.Adapter)
}
