package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mikey/llm-email-classifier/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeParser struct {
	msg *ParsedMessage
	err error
}

func (p *fakeParser) Parse(raw []byte) (*ParsedMessage, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.msg, nil
}

type fakeClient struct {
	output     string
	err        error
	panicValue any
	echo       bool
	calls      atomic.Int32
	lastPrompt atomic.Value
}

func (c *fakeClient) Complete(ctx context.Context, prompt Prompt, params GenerationParams) (string, error) {
	c.calls.Add(1)
	c.lastPrompt.Store(prompt)
	if c.panicValue != nil {
		panic(c.panicValue)
	}
	if c.err != nil {
		return "", c.err
	}
	if c.echo {
		return prompt.System + "\n" + prompt.User + "\n" + c.output, nil
	}
	return c.output, nil
}

func (c *fakeClient) ModelID() string {
	return "fake-model"
}

func newTestClassifier(parser MessageParser, client CompletionClient, labels LabelSet) *Classifier {
	return NewClassifier(parser, client, utils.NewTextProcessor(zap.NewNop()), ClassifierOptions{
		Labels:      labels,
		Params:      GenerationParams{MaxTokens: 64, Temperature: 0.1, TopP: 0.9},
		MaxBodySize: 4096,
	}, zap.NewNop())
}

func plainMessage(subject, body string) *fakeParser {
	return &fakeParser{msg: &ParsedMessage{
		Subject:   subject,
		Sender:    "sender@example.com",
		Recipient: "rcpt@example.com",
		Parts:     []MessagePart{{ContentType: "text/plain", Text: body}},
	}}
}

func TestClassifierClassify(t *testing.T) {
	client := &fakeClient{output: `{"label": "phishing"}`}
	c := newTestClassifier(plainMessage("Verify your account", "Click here"), client, MustLabelSet("phishing", "spam", "benign"))

	result := c.Classify(context.Background(), []byte("raw"), "mail.eml")

	assert.Equal(t, "mail.eml", result.FileName)
	assert.Equal(t, "phishing", result.Label)
	assert.Equal(t, []LabelScore{{Label: "phishing", Score: 1}}, result.Scores)
	assert.Equal(t, "Verify your account", result.Subject)
	assert.Equal(t, "sender@example.com", result.Sender)
	assert.Equal(t, "rcpt@example.com", result.Recipient)
	assert.Equal(t, `{"label": "phishing"}`, result.RawModelOutput)
	assert.Equal(t, "fake-model", result.ModelVersion)
	assert.Empty(t, result.Error)
	assert.Equal(t, []string{"phishing", "spam", "benign"}, result.Labels)

	prompt := client.lastPrompt.Load().(Prompt)
	assert.Contains(t, prompt.User, "Verify your account\n\nClick here")
}

func TestClassifierParseError(t *testing.T) {
	client := &fakeClient{output: `{"label": "spam"}`}
	c := newTestClassifier(&fakeParser{err: errors.New("malformed header")}, client, MustLabelSet("spam", "benign"))

	result := c.Classify(context.Background(), []byte("garbage"), "bad.eml")

	assert.False(t, result.HasLabel())
	assert.Contains(t, result.Error, "malformed header")
	assert.Empty(t, result.Subject)
	assert.Empty(t, result.Scores)
	assert.Zero(t, client.calls.Load())
}

func TestClassifierEmptyContent(t *testing.T) {
	client := &fakeClient{output: `{"label": "spam"}`}
	parser := &fakeParser{msg: &ParsedMessage{Sender: "a@example.com"}}
	c := newTestClassifier(parser, client, MustLabelSet("spam", "benign"))

	result := c.Classify(context.Background(), []byte("raw"), "empty.eml")

	assert.Equal(t, ErrNoTextualContent, result.Error)
	assert.False(t, result.HasLabel())
	assert.Empty(t, result.Scores)
	assert.Equal(t, "a@example.com", result.Sender)
	assert.Zero(t, client.calls.Load())
}

func TestClassifierModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection reset")}
	c := newTestClassifier(plainMessage("Hi", "Body"), client, MustLabelSet("spam", "benign"))

	result := c.Classify(context.Background(), []byte("raw"), "mail.eml")

	assert.False(t, result.HasLabel())
	assert.Contains(t, result.Error, "connection reset")
	assert.Equal(t, "Hi", result.Subject)
}

func TestClassifierRecoversPanics(t *testing.T) {
	client := &fakeClient{panicValue: "out of memory"}
	c := newTestClassifier(plainMessage("Hi", "Body"), client, MustLabelSet("spam", "benign"))

	var result *ClassificationResult
	require.NotPanics(t, func() {
		result = c.Classify(context.Background(), []byte("raw"), "mail.eml")
	})
	assert.Contains(t, result.Error, "out of memory")
	assert.False(t, result.HasLabel())
}

func TestClassifierStripsPromptEcho(t *testing.T) {
	client := &fakeClient{output: "spam", echo: true}
	c := newTestClassifier(plainMessage("Hi", "Body"), client, MustLabelSet("phishing", "spam", "benign"))

	result := c.Classify(context.Background(), []byte("raw"), "mail.eml")

	assert.Equal(t, "spam", result.RawModelOutput)
	assert.Equal(t, "spam", result.Label)
}

func TestClassifierWithoutClient(t *testing.T) {
	c := newTestClassifier(plainMessage("Hi", "Body"), nil, MustLabelSet("spam", "benign"))

	result := c.Classify(context.Background(), []byte("raw"), "mail.eml")
	assert.Contains(t, result.Error, ErrModelNotLoaded.Error())
	assert.False(t, c.Loaded())
}

func TestClassifierTruncatesBody(t *testing.T) {
	client := &fakeClient{output: `{"label": "benign"}`}
	c := NewClassifier(plainMessage("Subject", strings.Repeat("a", 500)), client,
		utils.NewTextProcessor(zap.NewNop()),
		ClassifierOptions{Labels: MustLabelSet("spam", "benign"), MaxBodySize: 100},
		zap.NewNop())

	c.Classify(context.Background(), []byte("raw"), "big.eml")

	prompt := client.lastPrompt.Load().(Prompt)
	assert.Contains(t, prompt.User, utils.TruncationMarker)
	assert.NotContains(t, prompt.User, strings.Repeat("a", 200))
}

func TestClassifyText(t *testing.T) {
	client := &fakeClient{output: "This is junk mail"}
	labels := MustLabelSet("phishing", "spam", "benign")
	c := newTestClassifier(plainMessage("", ""), client, labels)

	result := c.ClassifyText(context.Background(), "Buy now!", labels)
	assert.Equal(t, "spam", result.Label)
	assert.Len(t, result.Scores, 3)

	empty := c.ClassifyText(context.Background(), "   ", labels)
	assert.Equal(t, ErrNoTextualContent, empty.Error)
}

// The label is absent only when an error explains why.
func TestClassifierLabelOrError(t *testing.T) {
	labels := MustLabelSet("phishing", "spam", "benign", "unknown")
	outputs := []string{"", "???", `{"label": "weird"}`, "I cannot determine this email's nature with certainty."}

	for _, output := range outputs {
		c := newTestClassifier(plainMessage("Subject", "Body"), &fakeClient{output: output}, labels)
		result := c.Classify(context.Background(), []byte("raw"), "mail.eml")
		assert.True(t, result.HasLabel() != result.Failed(), "output %q", output)
	}
}
