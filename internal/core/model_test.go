package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationResultJSON(t *testing.T) {
	result := &ClassificationResult{
		FileName:       "mail.eml",
		Label:          "spam",
		Labels:         []string{"phishing", "spam", "benign"},
		Scores:         []LabelScore{{Label: "spam", Score: 1}},
		Subject:        "Deal",
		Sender:         "shop@example.com",
		ProcessingTime: 1234567 * time.Microsecond,
		ModelVersion:   "gpt-4o-mini",
		RawModelOutput: `{"label": "spam"}`,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, "mail.eml", wire["file_name"])
	assert.Equal(t, "spam", wire["classification"])
	assert.Nil(t, wire["error"])
	assert.InDelta(t, 1234.57, wire["processing_time_ms"], 1e-9)
	assert.Equal(t, "gpt-4o-mini", wire["model_version"])

	metadata := wire["metadata"].(map[string]any)
	assert.Equal(t, "Deal", metadata["subject"])
	assert.Nil(t, metadata["recipient"])
	assert.Contains(t, metadata, "recipient")

	var decoded ClassificationResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.Label, decoded.Label)
	assert.Equal(t, result.Scores, decoded.Scores)
	assert.Equal(t, result.Labels, decoded.Labels)
	assert.Equal(t, result.RawModelOutput, decoded.RawModelOutput)
}

func TestFailedResultJSON(t *testing.T) {
	data, err := json.Marshal(FailedResult("bad.eml", nil, "m", ErrNoTextualContent))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Nil(t, wire["classification"])
	assert.Equal(t, ErrNoTextualContent, wire["error"])
	assert.Equal(t, []any{}, wire["confidence_scores"])
	assert.NotContains(t, wire, "raw_model_output")
}

func TestWithFileName(t *testing.T) {
	original := &ClassificationResult{FileName: "a.eml", Label: "spam", Scores: []LabelScore{{Label: "spam", Score: 1}}}
	renamed := original.WithFileName("b.eml")

	assert.Equal(t, "b.eml", renamed.FileName)
	assert.Equal(t, "a.eml", original.FileName)

	renamed.Scores[0].Score = 0
	assert.Equal(t, 1.0, original.Scores[0].Score)
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&CacheEntry{ExpiresAt: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&CacheEntry{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.False(t, (&CacheEntry{}).Expired(now))
}
