package api

import (
	"github.com/mikey/llm-email-classifier/internal/core"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by endpoints that only acknowledge an action
type MessageResponse struct {
	Message string `json:"message"`
}

// Counters is the counter block shared by the health and stats responses
type Counters struct {
	TotalClassifications int     `json:"total_classifications"`
	CacheHits            int     `json:"cache_hits"`
	Errors               int     `json:"errors"`
	AvgProcessingTime    float64 `json:"avg_processing_time"`
}

// HealthResponse represents the response of GET /health
type HealthResponse struct {
	Status        string   `json:"status"`
	ModelLoaded   bool     `json:"model_loaded"`
	ModelID       string   `json:"model_id"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	UptimeStats   Counters `json:"uptime_stats"`
}

// StatsResponse represents the response of GET /stats
type StatsResponse struct {
	Counters
	ModelLoaded bool     `json:"model_loaded"`
	ModelID     string   `json:"model_id"`
	Labels      []string `json:"labels"`
	CacheSize   int      `json:"cache_size"`
}

// ModelInfo describes the model currently serving requests
type ModelInfo struct {
	ID       string   `json:"id"`
	Provider string   `json:"provider"`
	Labels   []string `json:"labels"`
}

// ModelsResponse represents the response of GET /models
type ModelsResponse struct {
	CurrentModel ModelInfo `json:"current_model"`
}

// BatchResponse represents the response of POST /classify/batch
type BatchResponse struct {
	Results                   []*core.ClassificationResult `json:"results"`
	TotalFiles                int                          `json:"total_files"`
	SuccessfulClassifications int                          `json:"successful_classifications"`
	FailedClassifications     int                          `json:"failed_classifications"`
	TotalProcessingTimeMS     float64                      `json:"total_processing_time_ms"`
}

// TextRequest is the body of POST /classify/text
type TextRequest struct {
	Text string `json:"text"`
}

// TextResponse represents the response of POST /classify/text
type TextResponse struct {
	Classification   *string           `json:"classification"`
	ConfidenceScores []core.LabelScore `json:"confidence_scores"`
	ProcessingTimeMS float64           `json:"processing_time_ms"`
	ModelVersion     string            `json:"model_version"`
	RawModelOutput   string            `json:"raw_model_output"`
	Error            *string           `json:"error"`
}

func newCounters(stats core.Stats) Counters {
	return Counters{
		TotalClassifications: stats.TotalClassifications,
		CacheHits:            stats.CacheHits,
		Errors:               stats.Errors,
		AvgProcessingTime:    core.DurationMillis(stats.AvgProcessingTime),
	}
}

func newTextResponse(result *core.ClassificationResult) TextResponse {
	scores := result.Scores
	if scores == nil {
		scores = []core.LabelScore{}
	}
	return TextResponse{
		Classification:   nullable(result.Label),
		ConfidenceScores: scores,
		ProcessingTimeMS: core.DurationMillis(result.ProcessingTime),
		ModelVersion:     result.ModelVersion,
		RawModelOutput:   result.RawModelOutput,
		Error:            nullable(result.Error),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
