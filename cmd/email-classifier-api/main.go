package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-email-classifier/internal/adapters/cache"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/di"
	"github.com/mikey/llm-email-classifier/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: search standard locations)")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run starts every intake and blocks until SIGINT or SIGTERM
func run(
	logger *zap.Logger,
	intakes []ports.Intake,
	client core.CompletionClient,
	cacheRepo cache.Repository,
	service *core.ClassificationService,
) error {
	defer logger.Sync()

	health := service.Health(context.Background())
	logger.Info("Classifier ready",
		zap.String("model", health.ModelID),
		zap.Strings("labels", health.Stats.Labels),
		zap.Bool("model_loaded", health.ModelLoaded))

	started := make([]ports.Intake, 0, len(intakes))
	for _, intake := range intakes {
		if err := intake.Start(); err != nil {
			stopAll(logger, started)
			return fmt.Errorf("failed to start intake: %w", err)
		}
		started = append(started, intake)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	if closer, ok := client.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close completion client", zap.Error(err))
		}
	}
	cacheRepo.Stop()

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, intakes []ports.Intake) {
	for i := len(intakes) - 1; i >= 0; i-- {
		if err := intakes[i].Stop(); err != nil {
			logger.Error("Failed to stop intake", zap.Error(err))
		}
	}
}
