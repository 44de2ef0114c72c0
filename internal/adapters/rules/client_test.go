package rules

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		label string
	}{
		{"phishing", "URGENT: your account is suspended, click here", "phishing"},
		{"phishing beats spam", "Free bitcoin offer", "phishing"},
		{"spam", "Huge discount in our newsletter, unsubscribe below", "spam"},
		{"benign", "See you at the meeting tomorrow", "benign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.label, Evaluate(tt.text).Label)
		})
	}
}

func TestEvaluateConfidenceIsCapped(t *testing.T) {
	verdict := Evaluate("urgent suspended click here verify account bitcoin crypto withdrawal")
	assert.InDelta(t, 0.8, verdict.Confidence, 1e-9)
	assert.Equal(t, 7, verdict.Matches)
}

func TestCompleteUsesEmailTextOnly(t *testing.T) {
	labels := core.MustLabelSet("phishing", "spam", "benign")
	prompt := core.BuildPrompt("Team lunch on Friday", labels)

	// The instructions mention urgent language; only the email text is scanned
	out, err := NewClient(zap.NewNop()).Complete(context.Background(), prompt, core.GenerationParams{})
	require.NoError(t, err)

	var verdict Verdict
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.Equal(t, "benign", verdict.Label)
	assert.Equal(t, "benign", core.ResolveLabel(out, labels).Label)
}

func TestCompleteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(zap.NewNop()).Complete(ctx, core.Prompt{Text: "hi"}, core.GenerationParams{})
	assert.ErrorIs(t, err, context.Canceled)
}
