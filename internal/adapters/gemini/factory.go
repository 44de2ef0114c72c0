package gemini

import (
	"context"
	"errors"

	"github.com/mikey/llm-email-classifier/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig creates a client from the gemini configuration section
func NewFromConfig(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini.api_key is required")
	}
	return NewClient(ctx, cfg.APIKey, cfg.ModelName, logger)
}
