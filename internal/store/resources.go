package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/vectorindex"
	"restaurantbot/internal/vectorindex/flat"
	"restaurantbot/internal/vectorindex/qdrant"
)

// Corpus is an index together with its parallel metadata array.
type Corpus[T any] struct {
	Adapter *vectorindex.Adapter
	Items   []T
}

// NewCorpus pairs an adapter with its metadata, rejecting arrays whose
// length differs from the index size.
func NewCorpus[T any](adapter *vectorindex.Adapter, items []T) (*Corpus[T], error) {
	if adapter.Size() != len(items) {
		return nil, fmt.Errorf("%w: index holds %d vectors but metadata has %d rows", domain.ErrMissingResource, adapter.Size(), len(items))
	}
	return &Corpus[T]{Adapter: adapter, Items: items}, nil
}

// Item returns the metadata row for an index id. ok is false for
// vectorindex.NoNeighbor and for ids outside the array.
func (c *Corpus[T]) Item(id int) (T, bool) {
	if id < 0 || id >= len(c.Items) {
		var zero T
		return zero, false
	}
	return c.Items[id], true
}

// SourceConfig locates one corpus.
type SourceConfig struct {
	Backend      string // "flat" or "qdrant"
	IndexPath    string
	MetadataPath string
	Qdrant       qdrant.Config
}

// Config locates both corpora.
type Config struct {
	Internal SourceConfig
	External SourceConfig
}

// lazy holds a value that is loaded on first use. Successful loads and
// missing-resource failures are kept; any other failure, such as a cancelled
// request or an unreachable index server, lets the next caller try again.
type lazy[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
	err  error
}

func (l *lazy[T]) get(load func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.val, l.err
	}
	v, err := load()
	if err != nil && !settled(err) {
		var zero T
		return zero, err
	}
	l.val, l.err, l.done = v, err, true
	return v, err
}

func (l *lazy[T]) set(v T, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.val, l.err, l.done = v, err, true
}

// settled reports whether a load error is a configuration problem that
// retrying cannot fix.
func settled(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrDependency) {
		return false
	}
	return errors.Is(err, domain.ErrMissingResource)
}

// Resources is the initialization context shared by the retrieval
// components. Everything it loads is read-only afterwards. A corpus that
// loaded, or failed for a configuration reason, is never loaded again.
type Resources struct {
	cfg      Config
	embedder domain.Embedder
	logger   *slog.Logger
	open     func(context.Context, SourceConfig) (vectorindex.Index, error)

	internal lazy[*Corpus[domain.Record]]
	chunks   lazy[[]domain.Chunk]
	external lazy[*Corpus[domain.Chunk]]

	mu      sync.Mutex
	closers []io.Closer
}

// NewResources prepares lazy loading of the corpora described by cfg.
func NewResources(cfg Config, embedder domain.Embedder, logger *slog.Logger) *Resources {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resources{cfg: cfg, embedder: embedder, logger: logger}
	r.open = r.openIndex
	return r
}

// NewStaticResources wraps corpora that are already loaded.
func NewStaticResources(internal *Corpus[domain.Record], external *Corpus[domain.Chunk]) *Resources {
	r := &Resources{logger: slog.Default()}
	var internalErr, externalErr error
	if internal == nil {
		internalErr = fmt.Errorf("%w: internal corpus not configured", domain.ErrMissingResource)
	}
	r.internal.set(internal, internalErr)
	if external == nil {
		externalErr = fmt.Errorf("%w: external corpus not configured", domain.ErrMissingResource)
		r.chunks.set(nil, externalErr)
	} else {
		r.chunks.set(external.Items, nil)
	}
	r.external.set(external, externalErr)
	return r
}

// Initialize loads every corpus. It is safe to call repeatedly and from
// several goroutines; once a corpus has loaded, or failed for a reason a
// retry cannot fix, later calls return that outcome.
func (r *Resources) Initialize(ctx context.Context) error {
	_, errIn := r.Internal(ctx)
	_, errEx := r.External(ctx)
	return errors.Join(errIn, errEx)
}

// Internal returns the restaurant record corpus.
func (r *Resources) Internal(ctx context.Context) (*Corpus[domain.Record], error) {
	return r.internal.get(func() (*Corpus[domain.Record], error) {
		items, err := LoadRecords(r.cfg.Internal.MetadataPath, r.logger)
		if err != nil {
			return nil, err
		}
		return openCorpus(ctx, r, "internal", r.cfg.Internal, items)
	})
}

// ExternalChunks returns the external metadata array without touching the
// external index.
func (r *Resources) ExternalChunks() ([]domain.Chunk, error) {
	return r.chunks.get(func() ([]domain.Chunk, error) {
		return LoadChunks(r.cfg.External.MetadataPath, r.logger)
	})
}

// External returns the external document corpus.
func (r *Resources) External(ctx context.Context) (*Corpus[domain.Chunk], error) {
	return r.external.get(func() (*Corpus[domain.Chunk], error) {
		items, err := r.ExternalChunks()
		if err != nil {
			return nil, err
		}
		return openCorpus(ctx, r, "external", r.cfg.External, items)
	})
}

// Close releases remote index connections.
func (r *Resources) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func openCorpus[T any](ctx context.Context, r *Resources, name string, cfg SourceConfig, items []T) (*Corpus[T], error) {
	idx, err := r.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", name, err)
	}
	corpus, err := NewCorpus(vectorindex.NewAdapter(r.embedder, idx), items)
	if err != nil {
		return nil, fmt.Errorf("%s corpus: %w", name, err)
	}
	r.logger.Info("store: corpus ready", "corpus", name, "backend", backendName(cfg), "rows", len(items), "dimension", idx.Dimension())
	return corpus, nil
}

func (r *Resources) openIndex(ctx context.Context, cfg SourceConfig) (vectorindex.Index, error) {
	switch backendName(cfg) {
	case "flat":
		idx, err := flat.Load(cfg.IndexPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: index file %s not found", domain.ErrMissingResource, cfg.IndexPath)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrMissingResource, err)
		}
		return idx, nil
	case "qdrant":
		idx, err := qdrant.Dial(ctx, cfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDependency, err)
		}
		r.mu.Lock()
		r.closers = append(r.closers, idx)
		r.mu.Unlock()
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrMissingResource, cfg.Backend)
	}
}

func backendName(cfg SourceConfig) string {
	if cfg.Backend == "" {
		return "flat"
	}
	return cfg.Backend
}
