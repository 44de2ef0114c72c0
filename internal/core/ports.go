package core

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss is returned by a CacheRepository when no live entry exists for a key
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrModelNotLoaded is returned when the service has no completion backend
	ErrModelNotLoaded = errors.New("classification model not loaded")
)

// CompletionClient is the model-completion interface. Implementations return
// only the newly generated text for a prompt.
type CompletionClient interface {
	// Complete runs one completion and returns the generated text
	Complete(ctx context.Context, prompt Prompt, params GenerationParams) (string, error)

	// ModelID identifies the model behind the client
	ModelID() string
}

// MessageParser turns raw message bytes into headers and decoded body parts
type MessageParser interface {
	Parse(raw []byte) (*ParsedMessage, error)
}

// CacheRepository defines the interface for caching classification results
type CacheRepository interface {
	// Get retrieves a live entry, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error

	// Clear removes every entry
	Clear(ctx context.Context) error

	// Len returns the number of stored entries
	Len(ctx context.Context) (int, error)
}
