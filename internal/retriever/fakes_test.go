package retriever

import (
	"context"
	"errors"
	"sync"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/store"
	"restaurantbot/internal/vectorindex"
)

type fakeEmbedder struct{ err error }

func (e fakeEmbedder) Name() string   { return "fake" }
func (e fakeEmbedder) Dimension() int { return 2 }
func (e fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

// rankedIndex returns a fixed ranking regardless of the query vector.
type rankedIndex struct {
	ids    []int
	scores []float32
	size   int

	mu    sync.Mutex
	asked []int
}

func (ix *rankedIndex) Search(_ context.Context, _ []float32, topK int) ([]float32, []int, error) {
	ix.mu.Lock()
	ix.asked = append(ix.asked, topK)
	ix.mu.Unlock()
	n := min(topK, len(ix.ids))
	return append([]float32(nil), ix.scores[:n]...), append([]int(nil), ix.ids[:n]...), nil
}

func (ix *rankedIndex) Size() int      { return ix.size }
func (ix *rankedIndex) Dimension() int { return 2 }

func (ix *rankedIndex) lastAsked() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.asked[len(ix.asked)-1]
}

type failingIndex struct{ size int }

func (ix failingIndex) Search(context.Context, []float32, int) ([]float32, []int, error) {
	return nil, nil, errors.New("connection refused")
}
func (ix failingIndex) Size() int      { return ix.size }
func (ix failingIndex) Dimension() int { return 2 }

func rank(ids ...int) *rankedIndex {
	scores := make([]float32, len(ids))
	for i := range ids {
		scores[i] = 1 - float32(i)*0.05
	}
	return &rankedIndex{ids: ids, scores: scores}
}

func recordCorpus(t interface{ Fatalf(string, ...any) }, ix vectorindex.Index, recs []domain.Record) *store.Corpus[domain.Record] {
	c, err := store.NewCorpus(vectorindex.NewAdapter(fakeEmbedder{}, ix), recs)
	if err != nil {
		t.Fatalf("corpus: %v", err)
	}
	return c
}

func chunkCorpus(t interface{ Fatalf(string, ...any) }, ix vectorindex.Index, chunks []domain.Chunk) *store.Corpus[domain.Chunk] {
	c, err := store.NewCorpus(vectorindex.NewAdapter(fakeEmbedder{}, ix), chunks)
	if err != nil {
		t.Fatalf("corpus: %v", err)
	}
	return c
}

func rec(name, city string) domain.Record {
	return domain.Record{RestaurantName: name, City: city, State: "CA", Categories: "Restaurants", Text: name + " serves food."}
}
