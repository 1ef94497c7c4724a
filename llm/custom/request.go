package custom

import (
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/crosstalk-ai/crosstalk/llm"
	"github.com/crosstalk-ai/crosstalk/llm/adapter"
)

// buildBody fills the configured JSON body template by setting the
// configured field paths: model, converted messages, tools, sampling
// parameters, and the streaming flag.
func buildBody(req *llm.Request, model string, cfg adapter.Config) ([]byte, error) {
	body := cfg.Request.BodyTemplate
	if body == "" {
		body = "{}"
	}

	messages, system, err := adapter.ConvertMessages(req.Messages, req.System, cfg)
	if err != nil {
		return nil, err
	}

	set := func(path string, value interface{}) error {
		if path == "" {
			return nil
		}
		body, err = sjson.Set(body, path, value)
		return err
	}

	if cfg.Request.ModelPath != "" {
		if err := set(cfg.Request.ModelPath, model); err != nil {
			return nil, err
		}
	}
	if err := set(cfg.Request.MessagesPath, messages); err != nil {
		return nil, err
	}
	if system != "" {
		if cfg.Request.SystemPath == "" {
			return nil, fmt.Errorf("system mode %q requires a system path", cfg.Messages.SystemMode)
		}
		if err := set(cfg.Request.SystemPath, system); err != nil {
			return nil, err
		}
	}
	if len(req.Tools) > 0 {
		if err := set(cfg.Request.ToolsPath, adapter.ConvertTools(req.Tools, cfg)); err != nil {
			return nil, err
		}
	}
	if err := set(cfg.Request.StreamPath, true); err != nil {
		return nil, err
	}
	if req.MaxTokens > 0 {
		if err := set(cfg.Request.MaxTokensPath, req.MaxTokens); err != nil {
			return nil, err
		}
	}
	if req.Temperature != nil {
		if err := set(cfg.Request.TemperaturePath, *req.Temperature); err != nil {
			return nil, err
		}
	}
	if req.TopP != nil {
		if err := set(cfg.Request.TopPPath, *req.TopP); err != nil {
			return nil, err
		}
	}

	return []byte(body), nil
}
