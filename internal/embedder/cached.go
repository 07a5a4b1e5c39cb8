package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of texts whose embeddings are memoized.
const DefaultCacheSize = 512

// CachedEmbedder memoizes embeddings by exact text. Failed calls are not cached.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with an LRU cache of the given size.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns the cached embedding for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		c.cache.Add(text, v)
	}
	return v, nil
}

// EmbedBatch embeds only the texts missing from the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			results[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	computed, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(computed), len(missing))
	}
	for j, v := range computed {
		results[missingIdx[j]] = v
		if len(v) > 0 {
			c.cache.Add(missing[j], v)
		}
	}
	return results, nil
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

// ModelName returns the wrapped embedder's model name.
func (c *CachedEmbedder) ModelName() string {
	return c.next.ModelName()
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Ensure CachedEmbedder implements Embedder interface.
var _ Embedder = (*CachedEmbedder)(nil)
