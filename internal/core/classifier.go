package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/llm-email-classifier/internal/utils"
	"go.uber.org/zap"
)

// ClassifierOptions is the construction-time configuration of a Classifier
type ClassifierOptions struct {
	Labels      LabelSet
	Params      GenerationParams
	MaxBodySize int
}

// Classifier runs the email-to-decision pipeline: parse, extract, prompt,
// complete and resolve. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	parser        MessageParser
	client        CompletionClient
	textProcessor *utils.TextProcessor
	labels        LabelSet
	params        GenerationParams
	maxBodySize   int
	logger        *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(
	parser MessageParser,
	client CompletionClient,
	textProcessor *utils.TextProcessor,
	opts ClassifierOptions,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		parser:        parser,
		client:        client,
		textProcessor: textProcessor,
		labels:        opts.Labels,
		params:        opts.Params,
		maxBodySize:   opts.MaxBodySize,
		logger:        logger,
	}
}

// Labels returns the configured label set
func (c *Classifier) Labels() LabelSet {
	return c.labels
}

// ModelID returns the identifier of the completion backend
func (c *Classifier) ModelID() string {
	if c.client == nil {
		return ""
	}
	return c.client.ModelID()
}

// Loaded reports whether a completion backend is available
func (c *Classifier) Loaded() bool {
	return c.client != nil
}

// Classify classifies a raw message against the configured label set
func (c *Classifier) Classify(ctx context.Context, raw []byte, fileName string) *ClassificationResult {
	return c.ClassifyWithLabels(ctx, raw, fileName, c.labels)
}

// ClassifyWithLabels classifies a raw message against labels. It always
// returns a result: parse, empty-content and model failures are reported
// through the result's Error field.
func (c *Classifier) ClassifyWithLabels(ctx context.Context, raw []byte, fileName string, labels LabelSet) *ClassificationResult {
	names := labels.Labels()

	msg, err := c.parse(raw)
	if err != nil {
		c.logger.Warn("Failed to parse message",
			zap.String("file", fileName),
			zap.Error(err))
		return FailedResult(fileName, names, c.ModelID(), fmt.Sprintf("Failed to parse email: %v", err))
	}

	text := CombineText(msg.Subject, ExtractBody(msg))
	if text == "" {
		return &ClassificationResult{
			FileName:     fileName,
			Labels:       names,
			Scores:       []LabelScore{},
			Subject:      msg.Subject,
			Sender:       msg.Sender,
			Recipient:    msg.Recipient,
			Error:        ErrNoTextualContent,
			ModelVersion: c.ModelID(),
		}
	}

	outcome := c.decide(ctx, text, labels, fileName)

	return &ClassificationResult{
		FileName:       fileName,
		Label:          outcome.label,
		Labels:         names,
		Scores:         outcome.scores,
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Recipient:      msg.Recipient,
		RawModelOutput: outcome.output,
		Error:          outcome.err,
		ProcessingTime: outcome.elapsed,
		ModelVersion:   c.ModelID(),
	}
}

// ClassifyText classifies already extracted text, skipping message parsing
func (c *Classifier) ClassifyText(ctx context.Context, text string, labels LabelSet) *ClassificationResult {
	names := labels.Labels()
	text = strings.TrimSpace(text)
	if text == "" {
		return FailedResult("", names, c.ModelID(), ErrNoTextualContent)
	}

	outcome := c.decide(ctx, text, labels, "")
	return &ClassificationResult{
		Label:          outcome.label,
		Labels:         names,
		Scores:         outcome.scores,
		RawModelOutput: outcome.output,
		Error:          outcome.err,
		ProcessingTime: outcome.elapsed,
		ModelVersion:   c.ModelID(),
	}
}

type decision struct {
	label   string
	scores  []LabelScore
	output  string
	err     string
	elapsed time.Duration
}

// decide builds the prompt, calls the model and resolves its output. The
// elapsed time covers exactly that span.
func (c *Classifier) decide(ctx context.Context, text string, labels LabelSet, fileName string) decision {
	start := time.Now()

	prompt := BuildPrompt(c.textProcessor.ProcessText(text, c.maxBodySize), labels)
	c.logger.Debug("Prompt built",
		zap.String("file", fileName),
		zap.Int("prompt_size", len(prompt.System)+len(prompt.User)))

	output, err := c.complete(ctx, prompt)
	if err != nil {
		elapsed := time.Since(start)
		c.logger.Error("Model invocation failed",
			zap.String("file", fileName),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return decision{
			scores:  []LabelScore{},
			err:     fmt.Sprintf("Model invocation failed: %v", err),
			elapsed: elapsed,
		}
	}
	output = stripPromptEcho(output, prompt)
	c.logger.Debug("Model output", zap.String("file", fileName), zap.String("output", output))

	resolution := ResolveLabel(output, labels)
	elapsed := time.Since(start)

	if resolution.Tier == TierDefault {
		c.logger.Warn("Model output matched no label, using default",
			zap.String("file", fileName),
			zap.String("label", resolution.Label))
	}
	c.logger.Info("Email classified",
		zap.String("file", fileName),
		zap.String("label", resolution.Label),
		zap.Stringer("tier", resolution.Tier),
		zap.Duration("elapsed", elapsed))

	return decision{
		label:   resolution.Label,
		scores:  resolution.Scores,
		output:  output,
		elapsed: elapsed,
	}
}

// complete invokes the backend, converting a panic into an error
func (c *Classifier) complete(ctx context.Context, prompt Prompt) (output string, err error) {
	if c.client == nil {
		return "", ErrModelNotLoaded
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion backend panicked: %v", r)
		}
	}()
	return c.client.Complete(ctx, prompt, c.params)
}

func (c *Classifier) parse(raw []byte) (msg *ParsedMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("message parser panicked: %v", r)
		}
	}()
	msg, err = c.parser.Parse(raw)
	if err == nil && msg == nil {
		msg = &ParsedMessage{}
	}
	return msg, err
}

// stripPromptEcho removes a copy of the prompt some backends return ahead of
// the generated continuation.
func stripPromptEcho(output string, prompt Prompt) string {
	trimmed := strings.TrimSpace(output)
	for _, echo := range []string{prompt.System, prompt.User} {
		if echo != "" && strings.HasPrefix(trimmed, echo) {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, echo))
		}
	}
	return trimmed
}
