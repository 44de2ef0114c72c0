package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-email-classifier/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig loads the default AWS credential chain for the configured
// region and creates a client.
func NewFromConfig(ctx context.Context, cfg config.BedrockConfig, logger *zap.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewClient(bedrockruntime.NewFromConfig(awsCfg), cfg.ModelID, logger), nil
}
