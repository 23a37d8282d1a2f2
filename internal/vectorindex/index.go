// Package vectorindex wraps nearest-neighbour search over L2-normalized
// embedding vectors. Row ids returned by an Index are positions in the
// metadata array that was built alongside it.
package vectorindex

import (
	"context"
	"fmt"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/embedding"
)

// NoNeighbor is the id an Index reports for an empty result slot.
// Callers must skip it; it never refers to row 0.
const NoNeighbor = -1

// Index performs inner-product k-NN search.
type Index interface {
	// Search returns up to topK (score, id) pairs in descending score order.
	// Slots without a neighbour carry id NoNeighbor.
	Search(ctx context.Context, vector []float32, topK int) (scores []float32, ids []int, err error)
	// Size is the number of indexed vectors.
	Size() int
	// Dimension is the vector width, or 0 when unknown.
	Dimension() int
}

// Adapter turns query text into a vector with the index's embedder and
// searches the index with it.
type Adapter struct {
	embedder domain.Embedder
	index    Index
}

// NewAdapter pairs an embedder with the index it was used to build.
func NewAdapter(embedder domain.Embedder, index Index) *Adapter {
	return &Adapter{embedder: embedder, index: index}
}

// Size returns the number of vectors behind the adapter.
func (a *Adapter) Size() int { return a.index.Size() }

// Search embeds query and returns the k nearest rows.
func (a *Adapter) Search(ctx context.Context, query string, k int) ([]float32, []int, error) {
	if k <= 0 {
		return nil, nil, nil
	}
	raw, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: embed query with %s: %v", domain.ErrDependency, a.embedder.Name(), err)
	}
	if dim := a.index.Dimension(); dim > 0 && len(raw) != dim {
		return nil, nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d", domain.ErrMissingResource, len(raw), dim)
	}
	// embedders may hand out shared (cached) slices
	vec := embedding.Normalize(append([]float32(nil), raw...))
	scores, ids, err := a.index.Search(ctx, vec, k)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: index search: %v", domain.ErrDependency, err)
	}
	return scores, ids, nil
}
