package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the API answers without any choice
var ErrEmptyResponse = errors.New("empty response from OpenAI")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is a core.CompletionClient backed by the OpenAI chat completions
// API or any server speaking the same protocol.
type Client struct {
	api       chatCompleter
	modelName string
	jsonMode  bool
	logger    *zap.Logger
}

// NewClient creates a new OpenAI completion client. jsonMode requests the
// json_object response format, which not every compatible server supports.
func NewClient(api chatCompleter, modelName string, jsonMode bool, logger *zap.Logger) *Client {
	return &Client{
		api:       api,
		modelName: modelName,
		jsonMode:  jsonMode,
		logger:    logger,
	}
}

// ModelID returns the chat model name
func (c *Client) ModelID() string {
	return c.modelName
}

// Complete sends the prompt as a system and a user message and returns the
// content of the first choice.
func (c *Client) Complete(ctx context.Context, prompt core.Prompt, params core.GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    toChatMessages(prompt),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("OpenAI completion received",
		zap.String("id", resp.ID),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toChatMessages(prompt core.Prompt) []openai.ChatCompletionMessage {
	messages := prompt.Messages()
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == core.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
