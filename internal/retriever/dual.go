package retriever

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/store"
)

const (
	sourceInternal = "internal"
	sourceExternal = "external"
)

// Dual retrieves restaurant records and external documents for one query.
type Dual struct {
	searcher    *Searcher
	external    *store.Corpus[domain.Chunk]
	defaultCity string
	autoCity    bool
	logger      *slog.Logger
}

// DualOptions configures location defaulting for the internal side.
type DualOptions struct {
	DefaultCity string
	AutoCity    bool
}

// NewDual creates a dual retriever.
func NewDual(searcher *Searcher, external *store.Corpus[domain.Chunk], opts DualOptions, logger *slog.Logger) *Dual {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dual{
		searcher:    searcher,
		external:    external,
		defaultCity: opts.DefaultCity,
		autoCity:    opts.AutoCity,
		logger:      logger,
	}
}

// Retrieve runs the location-aware internal search (one item per
// restaurant) and a plain top-k external search. The lists are returned
// side by side and never merged: their scores are not comparable.
func (d *Dual) Retrieve(ctx context.Context, query, city string, kInternal, kExternal int) (domain.Bundle, error) {
	var f domain.FilterSpec
	defaultCity := d.defaultCity
	if c := strings.TrimSpace(city); c != "" {
		f.City = domain.Ptr(c)
		defaultCity = c
	}

	bundle := domain.Bundle{Internal: []domain.RecordHit{}, External: []domain.ChunkHit{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleaned, eff := Rewrite(query, f, defaultCity, d.autoCity)
		hits, err := d.searcher.Search(gctx, cleaned, kInternal, eff, 1)
		if err != nil {
			return err
		}
		bundle.Internal = normalizeInternal(hits)
		return nil
	})
	g.Go(func() error {
		hits, err := SearchExternal(gctx, d.external, query, kExternal)
		if err != nil {
			return err
		}
		bundle.External = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Bundle{}, err
	}
	d.logger.Info("retriever: dual retrieve", "internal", len(bundle.Internal), "external", len(bundle.External))
	return bundle, nil
}

// SearchExternal returns the top-k external chunks for query, skipping
// empty slots, with the source tag filled in.
func SearchExternal(ctx context.Context, corpus *store.Corpus[domain.Chunk], query string, k int) ([]domain.ChunkHit, error) {
	out := []domain.ChunkHit{}
	if k <= 0 {
		return out, nil
	}
	scores, ids, err := corpus.Adapter.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		ch, ok := corpus.Item(id)
		if !ok {
			continue
		}
		if strings.TrimSpace(ch.Source) == "" {
			ch.Source = sourceExternal
		}
		out = append(out, domain.ChunkHit{Score: domain.Score(scores[i]), Row: id, Chunk: ch})
	}
	return out, nil
}

// normalizeInternal tags records as internal and gives each a stable
// source id: an existing one, else the item id, else the row position.
func normalizeInternal(hits []domain.RecordHit) []domain.RecordHit {
	for i := range hits {
		r := &hits[i].Record
		r.Source = sourceInternal
		if r.SourceID == "" {
			r.SourceID = r.ItemID
		}
		if r.SourceID == "" {
			r.SourceID = domain.Code(strconv.Itoa(hits[i].Row))
		}
	}
	return hits
}
