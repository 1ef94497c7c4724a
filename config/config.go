// Package config loads the bridge configuration: named provider
// definitions merged from defaults, a YAML config file, and environment
// variables.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/crosstalk-ai/crosstalk/llm/adapter"
)

// LLMConfig describes one provider instance: which driver to use and
// how to reach it.
type LLMConfig struct {
	Provider     string          `yaml:"provider"`               // "anthropic", "openai", "gemini", "ollama", or "custom"
	Model        string          `yaml:"model,omitempty"`        // Default model name
	APIKey       string          `yaml:"api_key,omitempty"`      // Provider API key
	BaseURL      string          `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Organization string          `yaml:"organization,omitempty"` // OpenAI organization ID
	MaxTokens    int64           `yaml:"max_tokens,omitempty"`   // Default completion budget
	Temperature  *float64        `yaml:"temperature,omitempty"`  // Optional temperature override
	TopP         *float64        `yaml:"top_p,omitempty"`        // Optional nucleus sampling override
	Timeout      int             `yaml:"timeout,omitempty"`      // Request timeout in seconds
	Adapter      *adapter.Config `yaml:"adapter,omitempty"`      // Protocol overrides for custom providers
}

// Config is the root configuration: named provider instances plus
// chat-level settings.
type Config struct {
	Providers       map[string]*LLMConfig `yaml:"providers,omitempty"`
	DefaultProvider string                `yaml:"default_provider,omitempty"`
	ChatTimeout     int                   `yaml:"chat_timeout,omitempty"` // Timeout in seconds for chat operations
}

// envKeyFallbacks maps driver names to the environment variable
// consulted when a provider entry carries no api_key.
var envKeyFallbacks = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// GetConfigPath returns the default config file path.
// Can be overridden via CROSSTALK_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("CROSSTALK_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.crosstalk/config.yaml"
	}
	return filepath.Join(homeDir, ".crosstalk", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load loads configuration from the given path, merging file contents
// onto defaults and filling missing API keys from the environment.
// A missing config file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	defaults := Config{
		Providers:   make(map[string]*LLMConfig),
		ChatTimeout: 60,
	}

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileConfig Config
		if err := yaml.Unmarshal(configYAML, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		if err := mergo.Merge(&defaults, fileConfig, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if defaults.Providers == nil {
		defaults.Providers = make(map[string]*LLMConfig)
	}

	for id, llmCfg := range defaults.Providers {
		applyProviderDefaults(id, llmCfg)
		if err := Validate(id, llmCfg); err != nil {
			return nil, err
		}
	}

	return &defaults, nil
}

// applyProviderDefaults fills per-provider smart defaults: environment
// API keys, OLLAMA_HOST, and the timeout.
func applyProviderDefaults(id string, cfg *LLMConfig) {
	if cfg.Provider == "" {
		cfg.Provider = id
	}
	if cfg.APIKey == "" {
		if envVar, ok := envKeyFallbacks[cfg.Provider]; ok {
			cfg.APIKey = os.Getenv(envVar)
		}
	}
	if cfg.Provider == "ollama" && cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OLLAMA_HOST")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120
	}
}

// Validate checks that a provider entry is usable before a client is
// built from it.
func Validate(id string, cfg *LLMConfig) error {
	switch cfg.Provider {
	case "anthropic", "openai", "gemini":
		if cfg.APIKey == "" {
			return fmt.Errorf("provider %q: api_key is required for %s", id, cfg.Provider)
		}
	case "ollama":
		// Host falls back to the Ollama client's own environment handling.
	case "custom":
		if cfg.BaseURL == "" {
			return fmt.Errorf("provider %q: base_url is required for custom providers", id)
		}
	case "":
		return fmt.Errorf("provider %q: provider type is required", id)
	default:
		return fmt.Errorf("provider %q: unknown provider type %q", id, cfg.Provider)
	}
	return nil
}

// Fingerprint returns a stable digest of the fields that require a
// rebuilt client when they change. Model and sampling parameters are
// excluded: they vary per request without invalidating the connection.
func (c *LLMConfig) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", c.Provider, c.APIKey, c.BaseURL, c.Organization, c.Timeout)
	if c.Adapter != nil {
		if raw, err := yaml.Marshal(c.Adapter); err == nil {
			h.Write(raw)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
