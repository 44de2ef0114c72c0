package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-classifier/internal/adapters/cache"
	"github.com/mikey/llm-email-classifier/internal/adapters/mimeparser"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/factory"
	"github.com/mikey/llm-email-classifier/internal/logging"
	"github.com/mikey/llm-email-classifier/internal/ports"
	"github.com/mikey/llm-email-classifier/internal/utils"
)

// BuildContainer creates and configures the container for the API service.
// configFile may be empty to search the default locations.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}

	// Register intakes
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IntakeFactory) ([]ports.Intake, error) {
		return f.CreateIntakes()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideClassification registers everything from the completion client up
// to the classification service. Config and logger must already be provided.
func provideClassification(container *dig.Container) error {
	providers := []interface{}{
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		utils.NewTextProcessor,
		func(logger *zap.Logger) core.MessageParser {
			return mimeparser.NewParser(logger)
		},
		func(f *factory.LLMFactory) (core.CompletionClient, error) {
			return f.CreateCompletionClient(context.Background())
		},
		func(f *factory.CacheFactory) (cache.Repository, error) {
			return f.CreateCacheRepository(context.Background())
		},
		func(repo cache.Repository) core.CacheRepository {
			return repo
		},
		func(cfg *config.Config) (config.ClassifierConfig, error) {
			return cfg.GetClassifier()
		},
		newClassifierOptions,
		newServiceOptions,
		core.NewClassifier,
		core.NewClassificationService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

func newClassifierOptions(cc config.ClassifierConfig) (core.ClassifierOptions, error) {
	labels, err := core.NewLabelSet(cc.Labels)
	if err != nil {
		return core.ClassifierOptions{}, fmt.Errorf("invalid classifier.labels: %w", err)
	}
	return core.ClassifierOptions{
		Labels: labels,
		Params: core.GenerationParams{
			MaxTokens:   cc.MaxTokens,
			Temperature: cc.Temperature,
			TopP:        cc.TopP,
		},
		MaxBodySize: cc.MaxBodySize,
	}, nil
}

func newServiceOptions(cc config.ClassifierConfig, f *factory.CacheFactory) (core.ServiceOptions, error) {
	ttl, err := f.GetCacheTTL()
	if err != nil {
		return core.ServiceOptions{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	return core.ServiceOptions{
		CacheEnabled:     f.IsCacheEnabled(),
		CacheTTL:         ttl,
		BatchConcurrency: cc.BatchConcurrency,
	}, nil
}
