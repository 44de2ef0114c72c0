package openai

import (
	"errors"

	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// NewFromConfig creates a client from the openai configuration section. A
// custom base URL points the client at an OpenAI-compatible server, in which
// case the API key may be empty.
func NewFromConfig(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai.api_key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return NewClient(openai.NewClientWithConfig(clientConfig), cfg.ModelName, cfg.BaseURL == "", logger), nil
}
