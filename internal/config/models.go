package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// ClassifierConfig is the construction-time configuration of the classifier
type ClassifierConfig struct {
	ModelID          string
	Labels           []string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	MaxBodySize      int
	RequestTimeout   time.Duration
	BatchConcurrency int
}

// Validate checks the generation parameters and the label vocabulary
func (c ClassifierConfig) Validate() error {
	if len(c.Labels) == 0 {
		return errors.New("classifier.labels must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Labels))
	for _, label := range c.Labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			return errors.New("classifier.labels must not contain blank entries")
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("classifier.labels contains duplicate label %q", label)
		}
		seen[key] = struct{}{}
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("classifier.max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("classifier.temperature must be in [0,1], got %g", c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("classifier.top_p must be in (0,1], got %g", c.TopP)
	}
	return nil
}

// OpenAIConfig represents the configuration for OpenAI or an OpenAI-compatible server
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ModelName string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	ListenAddress  string
	MaxFileSize    int64
	MaxBatchFiles  int
	AllowedOrigins string
}

// SMTPConfig represents the SMTP intake configuration
type SMTPConfig struct {
	Enabled        bool
	ListenAddress  string
	ForwardEnabled bool
	ForwardAddress string
	ForwardPort    int
	LabelHeader    string
	ScoreHeader    string
	TrustedDomains []string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetClassifier returns the classifier configuration. ModelID is resolved
// from the selected provider's model setting.
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	timeout, err := c.GetDuration("classifier.request_timeout")
	if err != nil {
		return ClassifierConfig{}, fmt.Errorf("invalid classifier.request_timeout: %w", err)
	}

	cfg := ClassifierConfig{
		ModelID:          c.modelID(),
		Labels:           c.GetStringSlice("classifier.labels"),
		MaxTokens:        c.GetInt("classifier.max_tokens"),
		Temperature:      float32(c.GetFloat64("classifier.temperature")),
		TopP:             float32(c.GetFloat64("classifier.top_p")),
		MaxBodySize:      c.GetInt("classifier.max_body_size"),
		RequestTimeout:   timeout,
		BatchConcurrency: c.GetInt("classifier.batch_concurrency"),
	}
	if err := cfg.Validate(); err != nil {
		return ClassifierConfig{}, err
	}
	return cfg, nil
}

func (c *Config) modelID() string {
	switch c.GetString("llm.provider") {
	case "openai":
		return c.GetString("openai.model_name")
	case "gemini":
		return c.GetString("gemini.model_name")
	case "bedrock":
		return c.GetString("bedrock.model_id")
	case "rules":
		return "keyword-rules"
	default:
		return ""
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:    c.GetString("openai.api_key"),
		BaseURL:   c.GetString("openai.base_url"),
		ModelName: c.GetString("openai.model_name"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		ModelName: c.GetString("gemini.model_name"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
	}
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:  c.GetString("server.listen_address"),
		MaxFileSize:    c.GetInt64("server.max_file_size"),
		MaxBatchFiles:  c.GetInt("server.max_batch_files"),
		AllowedOrigins: c.GetString("server.cors.allowed_origins"),
	}
}

// GetSMTP returns the SMTP intake configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:        c.GetBool("smtp.enabled"),
		ListenAddress:  c.GetString("smtp.listen_address"),
		ForwardEnabled: c.GetBool("smtp.forward.enabled"),
		ForwardAddress: c.GetString("smtp.forward.address"),
		ForwardPort:    c.GetInt("smtp.forward.port"),
		LabelHeader:    c.GetString("smtp.headers.label"),
		ScoreHeader:    c.GetString("smtp.headers.score"),
		TrustedDomains: c.GetStringSlice("smtp.trusted_domains"),
	}
}
