package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/logging"
)

// CLIFlags contains the command line overrides of the CLI application.
// Zero values leave the configured setting unchanged.
type CLIFlags struct {
	ConfigFile  string
	Provider    string
	Model       string
	Labels      []string
	Concurrency int
	Verbose     bool
	JSONLog     bool
}

// BuildCLIContainer creates the container for the CLI application. The CLI
// always uses an in-memory cache so duplicate messages in one run are
// classified once.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags overlays command line flags on the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.Model != "" {
		switch cfg.GetLLM().Provider {
		case "openai":
			cfg.Set("openai.model_name", flags.Model)
		case "gemini":
			cfg.Set("gemini.model_name", flags.Model)
		case "bedrock":
			cfg.Set("bedrock.model_id", flags.Model)
		}
	}
	if len(flags.Labels) > 0 {
		cfg.Set("classifier.labels", flags.Labels)
	}
	if flags.Concurrency > 0 {
		cfg.Set("classifier.batch_concurrency", flags.Concurrency)
	}

	cfg.Set("cache.type", "memory")
	cfg.Set("cache.cleanup_frequency", "0s")
}
