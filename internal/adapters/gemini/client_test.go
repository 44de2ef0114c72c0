package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"label": `), genai.Text(`"phishing"}`)}},
		}},
	}

	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"label": "phishing"}`, text)
}

func TestResponseTextEmpty(t *testing.T) {
	tests := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}}},
	}

	for _, resp := range tests {
		_, err := responseText(resp)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	}
}

func TestNewFromConfigRequiresKey(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.GeminiConfig{ModelName: "gemini-1.5-flash"}, zap.NewNop())
	assert.Error(t, err)
}
