package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/llm-email-classifier/internal/core"
	"go.uber.org/zap"
)

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// janitor periodically removes expired entries from a cache
type janitor struct {
	stopCh chan struct{}
	once   sync.Once
}

func startJanitor(c cleaner, freq time.Duration, logger *zap.Logger) *janitor {
	j := &janitor{stopCh: make(chan struct{})}
	if freq <= 0 {
		return j
	}

	go func() {
		ticker := time.NewTicker(freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.Cleanup(context.Background()); err != nil {
					logger.Error("Failed to clean up cache", zap.Error(err))
				}
			case <-j.stopCh:
				return
			}
		}
	}()
	return j
}

func (j *janitor) stop() {
	j.once.Do(func() { close(j.stopCh) })
}

// encodeResult serializes a result for the SQL and Redis backends
func encodeResult(result *core.ClassificationResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cached result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*core.ClassificationResult, error) {
	var result core.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, nil
}
