package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedDeterministicAndNormalized(t *testing.T) {
	e := NewEmbedder(64)
	assert.Equal(t, "hashing", e.Name())
	assert.Equal(t, 64, e.Dimension())

	ctx := context.Background()
	a, err := e.Embed(ctx, "Spicy ramen in the Mission")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "spicy RAMEN in the mission")
	require.NoError(t, err)
	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbedSimilarity(t *testing.T) {
	e := NewEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "vegan tacos")
	near, _ := e.Embed(ctx, "the best vegan tacos downtown")
	far, _ := e.Embed(ctx, "french pastry bakery croissant")
	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestEmbedEmptyText(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())
	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
	assert.Zero(t, norm(v))
}
