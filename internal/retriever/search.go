// Package retriever implements filtered semantic search over the restaurant
// index, implicit-location rewriting, and dual internal/external retrieval.
package retriever

import (
	"context"
	"log/slog"
	"strings"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/filter"
	"restaurantbot/internal/store"
)

// overFetch is how many candidates are requested per wanted result, leaving
// headroom for filtering and de-duplication.
const overFetch = 3

// Searcher runs filtered semantic search over the internal corpus.
type Searcher struct {
	corpus *store.Corpus[domain.Record]
	logger *slog.Logger
}

// NewSearcher creates a Searcher over corpus.
func NewSearcher(corpus *store.Corpus[domain.Record], logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{corpus: corpus, logger: logger}
}

// Search returns at most k records matching f, best first. With a non-zero
// limitPerEntity only the highest-scoring item of each restaurant is kept.
// Fewer than k results is a normal outcome, not an error.
func (s *Searcher) Search(ctx context.Context, query string, k int, f domain.FilterSpec, limitPerEntity int) ([]domain.RecordHit, error) {
	if k <= 0 {
		return []domain.RecordHit{}, nil
	}
	scores, ids, err := s.corpus.Adapter.Search(ctx, query, max(k*overFetch, k))
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecordHit, 0, k)
	seen := make(map[string]struct{})
	skipped := 0
	for i, id := range ids {
		rec, ok := s.corpus.Item(id)
		if !ok {
			continue
		}
		if !filter.Passes(rec, f) {
			skipped++
			continue
		}
		if limitPerEntity != 0 {
			key := EntityKey(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, domain.RecordHit{Score: domain.Score(scores[i]), Row: id, Record: rec})
		if len(out) >= k {
			break
		}
	}
	s.logger.Debug("retriever: semantic search", "k", k, "candidates", len(ids), "filtered", skipped, "results", len(out))
	return out, nil
}

// EntityKey is the de-duplication key of a record: its restaurant name,
// trimmed and lowercased.
func EntityKey(r domain.Record) string {
	return strings.ToLower(strings.TrimSpace(r.RestaurantName))
}
