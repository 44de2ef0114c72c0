package core

import (
	"encoding/json"
	"math"
	"time"
)

// ErrNoTextualContent is the error text of a result whose message had nothing to classify
const ErrNoTextualContent = "No textual content found"

// ParsedMessage is the structured view of a raw email produced by a MessageParser.
// Header values are kept exactly as declared in the message; absent headers are empty.
type ParsedMessage struct {
	Subject   string
	Sender    string
	Recipient string
	Parts     []MessagePart
}

// MessagePart is a single leaf body part in message order
type MessagePart struct {
	ContentType string
	Text        string
	Err         error // set when the part content could not be decoded
}

// LabelScore is a label with its heuristic ranking score
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Role identifies the author of a prompt message
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// ChatMessage is one message of a prompt
type ChatMessage struct {
	Role    Role
	Content string
}

// Prompt is the two-message instruction payload sent to a completion backend
type Prompt struct {
	System string
	User   string
	Text   string // email text embedded in User
}

// Messages returns the prompt as an ordered list of chat messages
func (p Prompt) Messages() []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: p.System},
		{Role: RoleUser, Content: p.User},
	}
}

// GenerationParams are the sampling parameters passed with every completion
type GenerationParams struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ClassificationResult is the outcome of classifying one message. Results are
// built once by the classifier and never modified afterwards; use the With*
// methods to derive a copy.
type ClassificationResult struct {
	FileName       string
	Label          string
	Labels         []string
	Scores         []LabelScore
	Subject        string
	Sender         string
	Recipient      string
	RawModelOutput string
	Error          string
	ProcessingTime time.Duration
	ModelVersion   string
}

// HasLabel reports whether a label was chosen
func (r *ClassificationResult) HasLabel() bool {
	return r.Label != ""
}

// Failed reports whether the classification ended with an error
func (r *ClassificationResult) Failed() bool {
	return r.Error != ""
}

// TopScore returns the score of the highest ranked label, or 0 when there are none
func (r *ClassificationResult) TopScore() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	return r.Scores[0].Score
}

// WithFileName returns a copy of the result carrying a different file name
func (r *ClassificationResult) WithFileName(name string) *ClassificationResult {
	c := *r
	c.FileName = name
	c.Labels = append([]string(nil), r.Labels...)
	c.Scores = append([]LabelScore(nil), r.Scores...)
	return &c
}

// FailedResult builds a result for a message that could not be classified
func FailedResult(fileName string, labels []string, modelVersion, message string) *ClassificationResult {
	return &ClassificationResult{
		FileName:     fileName,
		Labels:       append([]string(nil), labels...),
		Scores:       []LabelScore{},
		Error:        message,
		ModelVersion: modelVersion,
	}
}

type metadataJSON struct {
	Subject   *string `json:"subject"`
	Sender    *string `json:"sender"`
	Recipient *string `json:"recipient"`
}

type resultJSON struct {
	FileName         string       `json:"file_name"`
	Classification   *string      `json:"classification"`
	ConfidenceScores []LabelScore `json:"confidence_scores"`
	Metadata         metadataJSON `json:"metadata"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`
	ModelVersion     string       `json:"model_version"`
	Error            *string      `json:"error"`
	RawModelOutput   *string      `json:"raw_model_output,omitempty"`
	Labels           []string     `json:"labels,omitempty"`
}

// MarshalJSON encodes the result in the wire format shared by the HTTP API,
// the CLI and the caches.
func (r ClassificationResult) MarshalJSON() ([]byte, error) {
	scores := r.Scores
	if scores == nil {
		scores = []LabelScore{}
	}
	return json.Marshal(resultJSON{
		FileName:         r.FileName,
		Classification:   optional(r.Label),
		ConfidenceScores: scores,
		Metadata: metadataJSON{
			Subject:   optional(r.Subject),
			Sender:    optional(r.Sender),
			Recipient: optional(r.Recipient),
		},
		ProcessingTimeMS: DurationMillis(r.ProcessingTime),
		ModelVersion:     r.ModelVersion,
		Error:            optional(r.Error),
		RawModelOutput:   optional(r.RawModelOutput),
		Labels:           r.Labels,
	})
}

// UnmarshalJSON decodes the wire format written by MarshalJSON
func (r *ClassificationResult) UnmarshalJSON(data []byte) error {
	var wire resultJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = ClassificationResult{
		FileName:       wire.FileName,
		Label:          deref(wire.Classification),
		Labels:         wire.Labels,
		Scores:         wire.ConfidenceScores,
		Subject:        deref(wire.Metadata.Subject),
		Sender:         deref(wire.Metadata.Sender),
		Recipient:      deref(wire.Metadata.Recipient),
		RawModelOutput: deref(wire.RawModelOutput),
		Error:          deref(wire.Error),
		ProcessingTime: time.Duration(wire.ProcessingTimeMS * float64(time.Millisecond)),
		ModelVersion:   wire.ModelVersion,
	}
	if r.Scores == nil {
		r.Scores = []LabelScore{}
	}
	return nil
}

// DurationMillis converts a duration to milliseconds rounded to two decimals
func DurationMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CacheEntry is a cached classification result keyed by message content
type CacheEntry struct {
	Key       string
	Result    *ClassificationResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry time
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// BatchItem is one raw message submitted for batch classification
type BatchItem struct {
	FileName string
	Raw      []byte
}

// Stats is a snapshot of the service counters
type Stats struct {
	TotalClassifications int
	CacheHits            int
	Errors               int
	AvgProcessingTime    time.Duration
	ModelLoaded          bool
	ModelID              string
	Labels               []string
	CacheSize            int
}

// Health describes whether the service can classify
type Health struct {
	Status      string
	ModelLoaded bool
	ModelID     string
	Uptime      time.Duration
	Stats       Stats
}
