package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"restaurantbot/internal/config"
	"restaurantbot/internal/domain"
	"restaurantbot/internal/embedding"
	"restaurantbot/internal/embedding/hashing"
	"restaurantbot/internal/embedding/openai"
	"restaurantbot/internal/service"
	"restaurantbot/internal/store"
	"restaurantbot/internal/summarizer"
	"restaurantbot/internal/vectorindex/qdrant"
)

const usage = `Usage: restaurant-bot [--config=config.yaml] <command> [flags] [args]

Commands:
  search   <query>        ranked restaurant items (one per restaurant)
  rag      <query>        internal + external evidence with citations
  trend    <term> ...     monthly counts of external documents
  compare                 average price level of two category groups
  browse                  interactive evidence browser
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/restaurant-bot/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		log.Fatalf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	res := store.NewResources(store.Config{
		Internal: sourceConfig(cfg.Internal, cfg.Embedder.Dimension),
		External: sourceConfig(cfg.External, cfg.Embedder.Dimension),
	}, emb, logger)
	defer res.Close()

	svc := service.New(res, sum, service.Options{
		DefaultCity:         cfg.Location.DefaultCity,
		AutoCity:            cfg.Location.AutoCity,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, svc, cfg, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		res.Close()
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var inner domain.Embedder
	switch cfg.Type {
	case "hashing", "":
		inner = hashing.NewEmbedder(cfg.Dimension)
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Dimension:         cfg.Dimension,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		inner = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	return embedding.NewCached(inner, cfg.CacheSize)
}

func sourceConfig(ic config.IndexConfig, dimension int) store.SourceConfig {
	sc := store.SourceConfig{
		Backend:      ic.Type,
		IndexPath:    ic.IndexPath,
		MetadataPath: ic.MetadataPath,
	}
	if ic.Qdrant != nil {
		sc.Qdrant = qdrant.Config{
			Addr:       ic.Qdrant.Addr,
			Collection: ic.Qdrant.Collection,
			Dimension:  dimension,
		}
		if ic.Qdrant.APIKeyEnv != "" {
			sc.Qdrant.APIKey = os.Getenv(ic.Qdrant.APIKeyEnv)
		}
	}
	return sc
}
