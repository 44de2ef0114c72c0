package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-email-classifier/internal/adapters/bedrock"
	"github.com/mikey/llm-email-classifier/internal/adapters/gemini"
	"github.com/mikey/llm-email-classifier/internal/adapters/openai"
	"github.com/mikey/llm-email-classifier/internal/adapters/rules"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates completion clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompletionClient creates a completion client for the configured provider
func (f *LLMFactory) CreateCompletionClient(ctx context.Context) (core.CompletionClient, error) {
	provider := f.cfg.GetLLM().Provider
	f.logger.Info("Creating completion client", zap.String("provider", provider))

	switch provider {
	case "openai":
		return openai.NewFromConfig(f.cfg.GetOpenAI(), f.logger)
	case "gemini":
		return gemini.NewFromConfig(ctx, f.cfg.GetGemini(), f.logger)
	case "bedrock":
		return bedrock.NewFromConfig(ctx, f.cfg.GetBedrock(), f.logger)
	case "rules":
		return rules.NewClient(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
