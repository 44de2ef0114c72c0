package rules

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ModelID identifies the keyword rule backend in results
const ModelID = "keyword-rules"

var (
	phishingKeywords = []string{
		"verify account", "click here", "urgent", "suspended", "confirm identity",
		"update payment", "security alert", "pending transaction", "withdrawal",
		"bitcoin", "crypto", "trustwallet", "banco", "bradesco", "livelo",
	}

	spamKeywords = []string{
		"unsubscribe", "marketing", "promotion", "offer", "discount",
		"sale", "newsletter", "deal", "free", "limited time",
	}
)

// Verdict is the JSON object emitted by the rule backend
type Verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Matches    int     `json:"matches"`
}

// Client is a degraded-mode core.CompletionClient that classifies with
// keyword rules instead of a model. It answers in the same JSON shape a model
// is asked for, so the regular label resolution applies.
type Client struct {
	logger *zap.Logger
}

// NewClient creates a new rule backend
func NewClient(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

// ModelID returns the fixed rule backend identifier
func (c *Client) ModelID() string {
	return ModelID
}

// Complete scores the email text of the prompt against the keyword lists
func (c *Client) Complete(ctx context.Context, prompt core.Prompt, params core.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	verdict := Evaluate(prompt.Text)
	c.logger.Debug("Keyword rules evaluated",
		zap.String("label", verdict.Label),
		zap.Int("matches", verdict.Matches))

	out, err := json.Marshal(verdict)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Evaluate applies the keyword rules to text. Phishing keywords take
// precedence over spam keywords; text matching neither is benign.
func Evaluate(text string) Verdict {
	lowered := strings.ToLower(text)
	contains := func(keyword string) bool { return strings.Contains(lowered, keyword) }

	if n := lo.CountBy(phishingKeywords, contains); n > 0 {
		return Verdict{Label: "phishing", Confidence: min(0.8, 0.5+float64(n)*0.1), Matches: n}
	}
	if n := lo.CountBy(spamKeywords, contains); n > 0 {
		return Verdict{Label: "spam", Confidence: min(0.7, 0.4+float64(n)*0.1), Matches: n}
	}
	return Verdict{Label: "benign", Confidence: 0.6}
}
