package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	labels := MustLabelSet("phishing", "spam", "benign", "unknown")
	prompt := BuildPrompt("  Subject line\n\nBody text  ", labels)

	assert.Contains(t, prompt.System, "email security classifier")
	assert.Contains(t, prompt.System, `"phishing", "spam", "benign", "unknown"`)
	assert.Contains(t, prompt.System, "- unknown:")
	assert.Contains(t, prompt.System, `{"label": "<one_of_labels>"}`)

	assert.Contains(t, prompt.User, "Labels: [phishing, spam, benign, unknown]")
	assert.Contains(t, prompt.User, "Email:\nSubject line\n\nBody text\n\n")
	assert.Contains(t, prompt.User, "suspicious URLs")
	assert.Contains(t, prompt.User, "Return JSON only")

	messages := prompt.Messages()
	assert.Len(t, messages, 2)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
}

func TestBuildPromptDeterministic(t *testing.T) {
	labels := MustLabelSet("phishing", "spam", "benign")
	assert.Equal(t, BuildPrompt("same text", labels), BuildPrompt("same text", labels))
}

func TestBuildPromptCustomLabels(t *testing.T) {
	prompt := BuildPrompt("text", MustLabelSet("invoice", "receipt"))

	assert.Contains(t, prompt.System, `"invoice", "receipt"`)
	assert.NotContains(t, prompt.System, "- phishing:")
	assert.NotContains(t, prompt.System, "- unknown:")
}
