package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions configures caching and batch behaviour of the service
type ServiceOptions struct {
	CacheEnabled     bool
	CacheTTL         time.Duration
	BatchConcurrency int
}

// ClassificationService is the application service in front of the
// classifier: it adds a content-addressed result cache, counters and batch
// processing.
type ClassificationService struct {
	classifier *Classifier
	cache      CacheRepository
	logger     *zap.Logger
	opts       ServiceOptions
	started    time.Time

	mu            sync.Mutex
	total         int
	cacheHits     int
	errors        int
	totalDuration time.Duration
}

// NewClassificationService creates a new classification service
func NewClassificationService(
	classifier *Classifier,
	cache CacheRepository,
	logger *zap.Logger,
	opts ServiceOptions,
) *ClassificationService {
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 1
	}
	return &ClassificationService{
		classifier: classifier,
		cache:      cache,
		logger:     logger,
		opts:       opts,
		started:    time.Now(),
	}
}

// Classifier returns the underlying classifier
func (s *ClassificationService) Classifier() *Classifier {
	return s.classifier
}

// ModelID returns the identifier of the backing model
func (s *ClassificationService) ModelID() string {
	return s.classifier.ModelID()
}

// Classify classifies one raw message, serving repeated content from the cache
func (s *ClassificationService) Classify(ctx context.Context, raw []byte, fileName string) *ClassificationResult {
	key := s.cacheKey(raw)

	if s.cacheEnabled() {
		entry, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit", zap.String("file", fileName), zap.String("key", key))
			s.record(func() { s.cacheHits++ })
			return entry.Result.WithFileName(fileName)
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
		}
	}

	result := s.classifier.Classify(ctx, raw, fileName)
	s.track(result)

	if s.cacheEnabled() && !result.Failed() {
		now := time.Now()
		entry := &CacheEntry{
			Key:       key,
			Result:    result,
			CreatedAt: now,
			ExpiresAt: now.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result
}

// ClassifyBatch classifies items and returns results in input order. Up to
// BatchConcurrency items are classified at a time.
func (s *ClassificationService) ClassifyBatch(ctx context.Context, items []BatchItem) []*ClassificationResult {
	results := make([]*ClassificationResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = s.Classify(ctx, item.Raw, item.FileName)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ClassifyText classifies free text against the configured labels
func (s *ClassificationService) ClassifyText(ctx context.Context, text string) *ClassificationResult {
	result := s.classifier.ClassifyText(ctx, text, s.classifier.Labels())
	s.track(result)
	return result
}

// Stats returns a snapshot of the service counters
func (s *ClassificationService) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	stats := Stats{
		TotalClassifications: s.total,
		CacheHits:            s.cacheHits,
		Errors:               s.errors,
	}
	if s.total > 0 {
		stats.AvgProcessingTime = s.totalDuration / time.Duration(s.total)
	}
	s.mu.Unlock()

	stats.ModelLoaded = s.classifier.Loaded()
	stats.ModelID = s.classifier.ModelID()
	stats.Labels = s.classifier.Labels().Labels()

	if s.cache != nil {
		size, err := s.cache.Len(ctx)
		if err != nil {
			s.logger.Warn("Failed to read cache size", zap.Error(err))
		}
		stats.CacheSize = size
	}

	return stats
}

// Health reports whether the service is able to classify
func (s *ClassificationService) Health(ctx context.Context) Health {
	stats := s.Stats(ctx)
	status := "healthy"
	if !stats.ModelLoaded {
		status = "unhealthy"
	}
	return Health{
		Status:      status,
		ModelLoaded: stats.ModelLoaded,
		ModelID:     stats.ModelID,
		Uptime:      time.Since(s.started),
		Stats:       stats,
	}
}

// ClearCache drops every cached result
func (s *ClassificationService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Classification cache cleared")
	return nil
}

func (s *ClassificationService) cacheEnabled() bool {
	return s.opts.CacheEnabled && s.cache != nil
}

// cacheKey hashes the model, the label set and the message bytes so that a
// configuration change never serves stale decisions.
func (s *ClassificationService) cacheKey(raw []byte) string {
	h := sha256.New()
	h.Write([]byte(s.classifier.ModelID()))
	h.Write([]byte{0})
	h.Write([]byte(s.classifier.Labels().Key()))
	h.Write([]byte{0})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *ClassificationService) track(result *ClassificationResult) {
	s.record(func() {
		s.total++
		s.totalDuration += result.ProcessingTime
		if result.Failed() {
			s.errors++
		}
	})
}

func (s *ClassificationService) record(update func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update()
}
