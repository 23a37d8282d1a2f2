package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct{ calls int }

func (e *countingEmbedder) Name() string   { return "counting" }
func (e *countingEmbedder) Dimension() int { return 2 }
func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 1}, nil
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
	for _, x := range zero {
		assert.False(t, math.IsNaN(float64(x)))
	}
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 2)
	require.NoError(t, err)
	assert.Equal(t, "counting", c.Name())
	assert.Equal(t, 2, c.Dimension())

	ctx := context.Background()
	a1, err := c.Embed(ctx, "ramen")
	require.NoError(t, err)
	a2, err := c.Embed(ctx, "ramen")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, 1, inner.calls)

	_, _ = c.Embed(ctx, "pho")
	_, _ = c.Embed(ctx, "tacos")
	assert.Equal(t, 2, c.Len())
	_, _ = c.Embed(ctx, "ramen")
	assert.Equal(t, 4, inner.calls)
}
