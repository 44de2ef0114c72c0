package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-email-classifier/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when Gemini produces no text candidate
var ErrEmptyResponse = errors.New("empty response from Gemini")

// Client is a core.CompletionClient using Google Gemini
type Client struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, modelName string, logger *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ModelID returns the Gemini model name
func (c *Client) ModelID() string {
	return c.modelName
}

// Complete generates content with the system message as system instruction
// and the user message as the content.
func (c *Client) Complete(ctx context.Context, prompt core.Prompt, params core.GenerationParams) (string, error) {
	model := c.newModel(prompt, params)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		c.logger.Debug("Gemini completion received",
			zap.Int32("candidate_tokens", resp.UsageMetadata.CandidatesTokenCount))
	}
	return text, nil
}

// newModel configures a model handle per call; GenerativeModel settings are
// not safe to change concurrently.
func (c *Client) newModel(prompt core.Prompt, params core.GenerationParams) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(params.Temperature)
	model.SetTopP(params.TopP)
	model.SetMaxOutputTokens(int32(params.MaxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.System)},
	}
	return model
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(sb.String()), nil
}
