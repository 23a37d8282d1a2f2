// Package embedding holds the embedder plumbing shared by every backend:
// vector normalization and a query-embedding cache.
package embedding

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"restaurantbot/internal/domain"
)

// Normalize scales vec to unit L2 length in place so that inner product
// equals cosine similarity. The zero vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Cached wraps an Embedder with an LRU cache keyed by the exact query text.
// Cached vectors are shared between callers and must not be mutated.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached creates a caching embedder holding up to size vectors.
func NewCached(inner domain.Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding: create cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Name returns the wrapped embedder's name.
func (c *Cached) Name() string { return c.inner.Name() }

// Dimension returns the wrapped embedder's dimension.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed returns a cached vector or computes and stores a new one.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// Len reports how many vectors are cached.
func (c *Cached) Len() int { return c.cache.Len() }
