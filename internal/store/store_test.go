package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/embedding/hashing"
	"restaurantbot/internal/vectorindex"
	"restaurantbot/internal/vectorindex/flat"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecordsJSONArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "meta.json", `[
		{"restaurant_name": "Nopa", "city": "San Francisco", "rating": 4.5, "price": "$$", "zip_code": 94117},
		{"restaurant_name": 12, "city": "Oakland"},
		{"restaurant_name": "Commis", "rating": "NaN", "price": null}
	]`)
	recs, err := LoadRecords(path, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "Nopa", recs[0].RestaurantName)
	assert.Equal(t, domain.Code("94117"), recs[0].ZipCode)
	level, ok := recs[0].Price.Level()
	assert.True(t, ok)
	assert.Equal(t, 2.0, level)

	// a wrongly typed field falls back to its default, the rest survives
	assert.Equal(t, domain.Record{City: "Oakland"}, recs[1])

	_, ok = recs[2].Rating.Float()
	assert.False(t, ok)
	assert.False(t, recs[2].Price.Present())
}

func TestLoadChunksJSONLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chunks.jsonl", `{"source":"rss","title":"A","url":"u1","published":"2024-05-01T10:00:00Z","text":"x"}
not json at all

{"source":"wikipedia","title":"B","url":"u2","published":null,"text":"y"}
`)
	chunks, err := LoadChunks(path, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.NotNil(t, chunks[0].Published)
	assert.Equal(t, "2024-05-01T10:00:00Z", *chunks[0].Published)
	assert.Equal(t, domain.Chunk{}, chunks[1])
	assert.Nil(t, chunks[2].Published)
	assert.Equal(t, "B", chunks[2].Title)
}

func TestLoadRecordsBareNonFiniteNumbers(t *testing.T) {
	rows := []string{
		`{"restaurant_name": "Nopa", "city": "San Francisco", "rating": 4.5}`,
		`{"restaurant_name": "Commis", "city": "Oakland", "rating": NaN, "review_count": -Infinity}`,
		`{"restaurant_name": "NaN Bistro", "text": "rated NaN, Infinity stars", "confidence": Infinity}`,
	}
	dir := t.TempDir()
	layouts := map[string]string{
		"meta.json":  "[" + strings.Join(rows, ",\n") + "]",
		"meta.jsonl": strings.Join(rows, "\n"),
	}
	for name, content := range layouts {
		t.Run(name, func(t *testing.T) {
			recs, err := LoadRecords(writeFile(t, dir, name, content), nil)
			require.NoError(t, err)
			require.Len(t, recs, 3)

			assert.Equal(t, "Nopa", recs[0].RestaurantName)
			rating, ok := recs[0].Rating.Float()
			assert.True(t, ok)
			assert.Equal(t, 4.5, rating)

			assert.Equal(t, "Commis", recs[1].RestaurantName)
			assert.Equal(t, "Oakland", recs[1].City)
			assert.False(t, recs[1].Rating.Present())
			assert.False(t, recs[1].ReviewCount.Present())

			// tokens inside strings are untouched
			assert.Equal(t, "NaN Bistro", recs[2].RestaurantName)
			assert.Equal(t, "rated NaN, Infinity stars", recs[2].Text)
			assert.False(t, recs[2].Confidence.Present())
		})
	}
}

func TestNullNonFinite(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": NaN}`, `{"a": null}`},
		{`[Infinity,-Infinity]`, `[null,null]`},
		{`{"a": "NaN", "b": "say \"NaN\""}`, `{"a": "NaN", "b": "say \"NaN\""}`},
		{`{"NaNa": 1}`, `{"NaNa": 1}`},
		{`{"a": 1.5}`, `{"a": 1.5}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(nullNonFinite([]byte(tt.in))), tt.in)
	}
}

func TestLoadMissingMetadata(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingResource))
}

type sizedIndex struct{ n int }

func (s sizedIndex) Search(context.Context, []float32, int) ([]float32, []int, error) {
	return nil, nil, nil
}
func (s sizedIndex) Size() int      { return s.n }
func (s sizedIndex) Dimension() int { return 0 }

func TestNewCorpusRejectsLengthMismatch(t *testing.T) {
	emb := hashing.NewEmbedder(8)
	_, err := NewCorpus(vectorindex.NewAdapter(emb, sizedIndex{n: 3}), []domain.Record{{}, {}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingResource))

	c, err := NewCorpus(vectorindex.NewAdapter(emb, sizedIndex{n: 2}), []domain.Record{{City: "a"}, {City: "b"}})
	require.NoError(t, err)
	r, ok := c.Item(1)
	assert.True(t, ok)
	assert.Equal(t, "b", r.City)
	_, ok = c.Item(vectorindex.NoNeighbor)
	assert.False(t, ok)
	_, ok = c.Item(2)
	assert.False(t, ok)
}

func buildFixture(t *testing.T, dim int) Config {
	t.Helper()
	dir := t.TempDir()
	emb := hashing.NewEmbedder(dim)
	ctx := context.Background()

	texts := []string{"spicy ramen noodles", "wood fired pizza"}
	vecs := make([][]float32, len(texts))
	for i, txt := range texts {
		v, err := emb.Embed(ctx, txt)
		require.NoError(t, err)
		vecs[i] = v
	}
	require.NoError(t, flat.Write(filepath.Join(dir, "internal.bin"), dim, vecs))
	require.NoError(t, flat.Write(filepath.Join(dir, "external.bin"), dim, vecs[:1]))
	writeFile(t, dir, "internal.json", `[{"restaurant_name":"Ramen Bar","text":"spicy ramen noodles"},{"restaurant_name":"Pizzeria","text":"wood fired pizza"}]`)
	writeFile(t, dir, "external.json", `[{"source":"rss","title":"Ramen boom","text":"ramen"}]`)

	return Config{
		Internal: SourceConfig{IndexPath: filepath.Join(dir, "internal.bin"), MetadataPath: filepath.Join(dir, "internal.json")},
		External: SourceConfig{IndexPath: filepath.Join(dir, "external.bin"), MetadataPath: filepath.Join(dir, "external.json")},
	}
}

func TestResourcesLoadOnce(t *testing.T) {
	cfg := buildFixture(t, 64)
	res := NewResources(cfg, hashing.NewEmbedder(64), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	corpora := make([]*Corpus[domain.Record], 8)
	for i := range corpora {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := res.Internal(ctx)
			assert.NoError(t, err)
			corpora[i] = c
		}(i)
	}
	wg.Wait()
	for _, c := range corpora {
		assert.Same(t, corpora[0], c)
	}

	require.NoError(t, res.Initialize(ctx))
	ext, err := res.External(ctx)
	require.NoError(t, err)
	assert.Len(t, ext.Items, 1)

	scores, ids, err := corpora[0].Adapter.Search(ctx, "ramen", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, ids[0])
	assert.Greater(t, scores[0], scores[1])
	assert.NoError(t, res.Close())
}

func TestResourcesMissingIndex(t *testing.T) {
	cfg := buildFixture(t, 64)
	cfg.Internal.IndexPath = filepath.Join(t.TempDir(), "gone.bin")
	res := NewResources(cfg, hashing.NewEmbedder(64), nil)

	_, err := res.Internal(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindMissingResource, domain.KindOf(err))

	// the failure is remembered
	_, err2 := res.Internal(context.Background())
	assert.Equal(t, err, err2)

	// the external side is unaffected
	_, err = res.External(context.Background())
	require.NoError(t, err)
	assert.Error(t, res.Initialize(context.Background()))
}

func TestResourcesRetryAfterTransientFailure(t *testing.T) {
	cfg := buildFixture(t, 64)
	res := NewResources(cfg, hashing.NewEmbedder(64), nil)
	calls := 0
	res.open = func(ctx context.Context, sc SourceConfig) (vectorindex.Index, error) {
		calls++
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: describe collection: %w", domain.ErrDependency, err)
		}
		return res.openIndex(ctx, sc)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := res.Internal(cancelled)
	require.Error(t, err)
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))

	c, err := res.Internal(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Items, 2)

	again, err := res.Internal(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Equal(t, 2, calls)
}

func TestResourcesMissingResourceIsNotRetried(t *testing.T) {
	cfg := buildFixture(t, 64)
	res := NewResources(cfg, hashing.NewEmbedder(64), nil)
	calls := 0
	res.open = func(context.Context, SourceConfig) (vectorindex.Index, error) {
		calls++
		return nil, fmt.Errorf("%w: index file not found", domain.ErrMissingResource)
	}
	for range 3 {
		_, err := res.External(context.Background())
		assert.True(t, errors.Is(err, domain.ErrMissingResource))
	}
	assert.Equal(t, 1, calls)
}

func TestResourcesDimensionMismatchSurfacesOnSearch(t *testing.T) {
	cfg := buildFixture(t, 64)
	res := NewResources(cfg, hashing.NewEmbedder(128), nil)
	c, err := res.Internal(context.Background())
	require.NoError(t, err)
	_, _, err = c.Adapter.Search(context.Background(), "ramen", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingResource))
}

func TestResourcesUnknownBackend(t *testing.T) {
	cfg := buildFixture(t, 64)
	cfg.External.Backend = "faiss"
	res := NewResources(cfg, hashing.NewEmbedder(64), nil)
	_, err := res.External(context.Background())
	require.Error(t, err)

	chunks, err := res.ExternalChunks()
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestStaticResources(t *testing.T) {
	res := NewStaticResources(nil, nil)
	_, err := res.Internal(context.Background())
	assert.True(t, errors.Is(err, domain.ErrMissingResource))
	_, err = res.ExternalChunks()
	assert.True(t, errors.Is(err, domain.ErrMissingResource))
}
