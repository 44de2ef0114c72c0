package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	body  []byte
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

var testPrompt = core.Prompt{System: "be a classifier", User: "classify this"}

func TestCompleteAnthropic(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":" {\"label\": \"spam\"} "}]}`)}
	client := NewClient(fake, "anthropic.claude-3-haiku-20240307-v1:0", zap.NewNop())

	out, err := client.Complete(context.Background(), testPrompt, core.GenerationParams{MaxTokens: 32, Temperature: 0.2, TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, `{"label": "spam"}`, out)

	var req map[string]any
	require.NoError(t, json.Unmarshal(fake.input.Body, &req))
	assert.Equal(t, anthropicVersion, req["anthropic_version"])
	assert.Equal(t, "be a classifier", req["system"])
	assert.EqualValues(t, 32, req["max_tokens"])
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *fake.input.ModelId)
}

func TestCompleteTitan(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"results":[{"outputText":"benign"}]}`)}
	client := NewClient(fake, "amazon.titan-text-express-v1", zap.NewNop())

	out, err := client.Complete(context.Background(), testPrompt, core.GenerationParams{MaxTokens: 32})
	require.NoError(t, err)
	assert.Equal(t, "benign", out)

	var req map[string]any
	require.NoError(t, json.Unmarshal(fake.input.Body, &req))
	assert.Equal(t, "be a classifier\n\nclassify this", req["inputText"])
}

func TestCompleteGeneric(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"generation":"phishing"}`)}
	client := NewClient(fake, "meta.llama3-8b-instruct-v1:0", zap.NewNop())

	out, err := client.Complete(context.Background(), testPrompt, core.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "phishing", out)
}

func TestCompleteEmpty(t *testing.T) {
	client := NewClient(&fakeInvoker{body: []byte(`{"results":[]}`)}, "amazon.titan-text-lite-v1", zap.NewNop())
	_, err := client.Complete(context.Background(), testPrompt, core.GenerationParams{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	client = NewClient(&fakeInvoker{body: []byte(`{"content":[]}`)}, "us.anthropic.claude-3-5-haiku-20241022-v1:0", zap.NewNop())
	_, err = client.Complete(context.Background(), testPrompt, core.GenerationParams{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
