// Package service is the retrieval core's surface for outer layers (CLI,
// terminal UI, an HTTP front end). It validates requests, runs the
// retrieval components against the shared read-only resources, and logs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"restaurantbot/internal/analytics"
	"restaurantbot/internal/domain"
	"restaurantbot/internal/retriever"
	"restaurantbot/internal/store"
	"restaurantbot/internal/summarizer"
	"restaurantbot/internal/trend"
)

// Options configures the service behaviour.
type Options struct {
	DefaultCity         string
	AutoCity            bool
	SummaryMaxSentences int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DefaultCity:         "San Francisco",
		AutoCity:            true,
		SummaryMaxSentences: 5,
	}
}

// Service exposes search, dual retrieval, trends and price comparison.
type Service struct {
	res        *store.Resources
	opts       Options
	summarizer domain.Summarizer
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Service over res.
func New(res *store.Resources, sum domain.Summarizer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sum == nil {
		sum = summarizer.NewFrequencySummarizer()
	}
	return &Service{res: res, opts: opts, summarizer: sum, logger: logger, now: time.Now}
}

// Initialize loads every index and metadata array up front.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.res.Initialize(ctx); err != nil {
		s.logger.Error("service: initialize failed", "err", err)
		return err
	}
	return nil
}

// SearchRequest is an internal restaurant search.
type SearchRequest struct {
	Query         string
	K             int
	City          string
	State         string
	Categories    []string
	MinRating     *float64
	MaxPrice      *float64
	ConfidenceMin *float64
}

func (r SearchRequest) filter() domain.FilterSpec {
	var f domain.FilterSpec
	if c := strings.TrimSpace(r.City); c != "" {
		f.City = domain.Ptr(c)
	}
	if st := strings.TrimSpace(r.State); st != "" {
		f.State = domain.Ptr(st)
	}
	if len(r.Categories) > 0 {
		f.CategoriesAny = append([]string(nil), r.Categories...)
	}
	f.MinRating = r.MinRating
	f.MaxPrice = r.MaxPrice
	f.ConfidenceMin = r.ConfidenceMin
	return f
}

// Search returns ranked restaurants for a query, one item per restaurant,
// defaulting the city when the caller gave none.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]domain.RecordHit, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	corpus, err := s.res.Internal(ctx)
	if err != nil {
		return nil, s.fail("search", err)
	}
	defaultCity := s.opts.DefaultCity
	if c := strings.TrimSpace(req.City); c != "" {
		defaultCity = c
	}
	cleaned, f := retriever.Rewrite(req.Query, req.filter(), defaultCity, s.opts.AutoCity)
	start := time.Now()
	hits, err := retriever.NewSearcher(corpus, s.logger).Search(ctx, cleaned, req.K, f, 1)
	if err != nil {
		return nil, s.fail("search", err)
	}
	s.logger.Info("service: search", "query_len", len(req.Query), "k", req.K, "results", len(hits), "took", time.Since(start))
	return hits, nil
}

// DualRetrieve returns internal and external evidence for a query.
func (s *Service) DualRetrieve(ctx context.Context, query, city string, kInternal, kExternal int) (domain.Bundle, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Bundle{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	internal, err := s.res.Internal(ctx)
	if err != nil {
		return domain.Bundle{}, s.fail("dual retrieve", err)
	}
	external, err := s.res.External(ctx)
	if err != nil {
		return domain.Bundle{}, s.fail("dual retrieve", err)
	}
	dual := retriever.NewDual(retriever.NewSearcher(internal, s.logger), external, retriever.DualOptions{
		DefaultCity: s.opts.DefaultCity,
		AutoCity:    s.opts.AutoCity,
	}, s.logger)
	bundle, err := dual.Retrieve(ctx, query, city, kInternal, kExternal)
	if err != nil {
		return domain.Bundle{}, s.fail("dual retrieve", err)
	}
	return bundle, nil
}

// Evidence is a bundle with its citations and an extractive summary that
// stands in for a generated answer.
type Evidence struct {
	Query     string            `json:"query"`
	Contexts  domain.Bundle     `json:"contexts"`
	Citations []domain.Citation `json:"citations"`
	Summary   string            `json:"summary"`
}

// Evidence runs dual retrieval and prepares citations and a fallback summary.
func (s *Service) Evidence(ctx context.Context, query, city string, kInternal, kExternal int) (Evidence, error) {
	bundle, err := s.DualRetrieve(ctx, query, city, kInternal, kExternal)
	if err != nil {
		return Evidence{}, err
	}
	summary, err := summarizer.SummarizeBundle(s.summarizer, bundle, s.opts.SummaryMaxSentences)
	if err != nil {
		// the summary is decorative; the evidence still stands
		s.logger.Warn("service: summarize evidence failed", "err", err)
	}
	return Evidence{
		Query:     query,
		Contexts:  bundle,
		Citations: Citations(bundle),
		Summary:   summary,
	}, nil
}

// TrendRequest asks for monthly counts of external documents.
type TrendRequest struct {
	Terms       []string
	Months      int
	MustInclude string
	Mode        string
}

// TrendReport echoes the request next to its buckets.
type TrendReport struct {
	Terms       []string             `json:"terms"`
	Months      int                  `json:"months"`
	MustInclude *string              `json:"must_include"`
	Mode        trend.Mode           `json:"mode"`
	Buckets     []domain.TrendBucket `json:"buckets"`
}

// MonthlyTrend buckets external documents mentioning the terms by month.
func (s *Service) MonthlyTrend(_ context.Context, req TrendRequest) (TrendReport, error) {
	mode, err := trend.ParseMode(req.Mode)
	if err != nil {
		return TrendReport{}, err
	}
	if len(req.Terms) == 0 {
		return TrendReport{}, fmt.Errorf("%w: at least one term is required", domain.ErrInvalidRequest)
	}
	if req.Months <= 0 {
		return TrendReport{}, fmt.Errorf("%w: months must be positive, got %d", domain.ErrInvalidRequest, req.Months)
	}
	chunks, err := s.res.ExternalChunks()
	if err != nil {
		return TrendReport{}, s.fail("trend", err)
	}
	must := strings.TrimSpace(req.MustInclude)
	buckets := trend.MonthlyTrend(chunks, trend.Query{
		Terms:       req.Terms,
		MustInclude: must,
		Months:      req.Months,
		Mode:        mode,
	}, s.now())
	report := TrendReport{Terms: req.Terms, Months: req.Months, Mode: mode, Buckets: buckets}
	if must != "" {
		report.MustInclude = &must
	}
	s.logger.Info("service: trend", "terms", len(req.Terms), "months", req.Months, "mode", mode, "buckets", len(buckets))
	return report, nil
}

// ComparePrices compares the average price level of two category groups.
func (s *Service) ComparePrices(ctx context.Context, city string, a, b []string) (analytics.PriceComparison, error) {
	if len(a) == 0 || len(b) == 0 {
		return analytics.PriceComparison{}, fmt.Errorf("%w: both category groups need at least one term", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(city) == "" {
		city = s.opts.DefaultCity
	}
	corpus, err := s.res.Internal(ctx)
	if err != nil {
		return analytics.PriceComparison{}, s.fail("compare", err)
	}
	return analytics.ComparePrices(corpus.Items, city, a, b), nil
}

func (s *Service) fail(op string, err error) error {
	s.logger.Error("service: "+op+" failed", "kind", domain.KindOf(err), "err", err)
	return err
}
