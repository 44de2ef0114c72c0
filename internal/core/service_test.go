package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

func (c *mapCache) Set(ctx context.Context, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(ctx context.Context) error { return nil }

func (c *mapCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
	return nil
}

func (c *mapCache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

func newTestService(client *fakeClient, parser MessageParser, cache CacheRepository, concurrency int) *ClassificationService {
	classifier := newTestClassifier(parser, client, MustLabelSet("phishing", "spam", "benign"))
	return NewClassificationService(classifier, cache, zap.NewNop(), ServiceOptions{
		CacheEnabled:     true,
		CacheTTL:         time.Hour,
		BatchConcurrency: concurrency,
	})
}

func TestServiceCachesByContent(t *testing.T) {
	client := &fakeClient{output: `{"label": "spam"}`}
	cache := newMapCache()
	svc := newTestService(client, plainMessage("Sale", "50% off"), cache, 1)
	ctx := context.Background()

	first := svc.Classify(ctx, []byte("same bytes"), "a.eml")
	second := svc.Classify(ctx, []byte("same bytes"), "b.eml")

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, "a.eml", first.FileName)
	assert.Equal(t, "b.eml", second.FileName)
	assert.Equal(t, first.Label, second.Label)

	stats := svc.Stats(ctx)
	assert.Equal(t, 1, stats.TotalClassifications)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Equal(t, "fake-model", stats.ModelID)
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	client := &fakeClient{err: errors.New("timeout")}
	cache := newMapCache()
	svc := newTestService(client, plainMessage("Hi", "Body"), cache, 1)
	ctx := context.Background()

	svc.Classify(ctx, []byte("raw"), "a.eml")
	svc.Classify(ctx, []byte("raw"), "a.eml")

	assert.Equal(t, int32(2), client.calls.Load())
	size, _ := cache.Len(ctx)
	assert.Zero(t, size)
	assert.Equal(t, 2, svc.Stats(ctx).Errors)
}

func TestServiceCacheLookupError(t *testing.T) {
	client := &fakeClient{output: `{"label": "benign"}`}
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	svc := newTestService(client, plainMessage("Hi", "Body"), cache, 1)

	result := svc.Classify(context.Background(), []byte("raw"), "a.eml")
	assert.Equal(t, "benign", result.Label)
}

func TestServiceClearCache(t *testing.T) {
	client := &fakeClient{output: `{"label": "benign"}`}
	cache := newMapCache()
	svc := newTestService(client, plainMessage("Hi", "Body"), cache, 1)
	ctx := context.Background()

	svc.Classify(ctx, []byte("raw"), "a.eml")
	require.NoError(t, svc.ClearCache(ctx))
	assert.Zero(t, svc.Stats(ctx).CacheSize)
}

func TestServiceClassifyBatchKeepsOrder(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			client := &fakeClient{output: `{"label": "benign"}`}
			svc := newTestService(client, plainMessage("Hi", "Body"), newMapCache(), concurrency)

			items := make([]BatchItem, 8)
			for i := range items {
				items[i] = BatchItem{FileName: fmt.Sprintf("mail-%d.eml", i), Raw: []byte(fmt.Sprintf("raw %d", i))}
			}

			results := svc.ClassifyBatch(context.Background(), items)
			require.Len(t, results, len(items))
			for i, result := range results {
				assert.Equal(t, items[i].FileName, result.FileName)
				assert.Equal(t, "benign", result.Label)
			}
			assert.Equal(t, len(items), svc.Stats(context.Background()).TotalClassifications)
		})
	}
}

func TestServiceHealth(t *testing.T) {
	svc := newTestService(&fakeClient{}, plainMessage("Hi", "Body"), nil, 1)
	health := svc.Health(context.Background())

	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "fake-model", health.ModelID)
}

func TestServiceStatsAverage(t *testing.T) {
	svc := newTestService(&fakeClient{output: "spam"}, plainMessage("Hi", "Body"), nil, 1)
	ctx := context.Background()

	svc.ClassifyText(ctx, "first")
	svc.ClassifyText(ctx, "second")

	stats := svc.Stats(ctx)
	assert.Equal(t, 2, stats.TotalClassifications)
	assert.GreaterOrEqual(t, stats.AvgProcessingTime, time.Duration(0))
	assert.Equal(t, []string{"phishing", "spam", "benign"}, stats.Labels)
}
