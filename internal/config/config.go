package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the query embedder. It must match
// the embedder the indexes were built with.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	CacheSize int                   `yaml:"cache_size"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// IndexConfig locates one pre-built index and its metadata array.
type IndexConfig struct {
	Type         string        `yaml:"type"`
	IndexPath    string        `yaml:"index_path"`
	MetadataPath string        `yaml:"metadata_path"`
	Qdrant       *QdrantConfig `yaml:"qdrant,omitempty"`
}

// LocationConfig controls implicit location defaulting.
type LocationConfig struct {
	DefaultCity string `yaml:"default_city"`
	AutoCity    bool   `yaml:"auto_city"`
}

// RetrievalConfig holds default result sizes.
type RetrievalConfig struct {
	K         int `yaml:"k"`
	KInternal int `yaml:"k_internal"`
	KExternal int `yaml:"k_external"`
}

// TrendConfig holds trend defaults.
type TrendConfig struct {
	Months int    `yaml:"months"`
	Mode   string `yaml:"mode"`
}

// SummarizerConfig selects and configures the fallback summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogLevel   string           `yaml:"log_level"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Internal   IndexConfig      `yaml:"internal"`
	External   IndexConfig      `yaml:"external"`
	Location   LocationConfig   `yaml:"location"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Trend      TrendConfig      `yaml:"trend"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/restaurant-bot/config.yaml.
// If neither exists, it writes defaults to ~/.config/restaurant-bot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "restaurant-bot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		LogLevel: "info",
		Embedder: EmbedderConfig{Type: "hashing", Dimension: 384, CacheSize: 256},
		Internal: IndexConfig{
			Type:         "flat",
			IndexPath:    "data/internal_index.bin",
			MetadataPath: "data/internal_metadata.json",
		},
		External: IndexConfig{
			Type:         "flat",
			IndexPath:    "data/external_index.bin",
			MetadataPath: "data/external_metadata.json",
		},
		Location:   LocationConfig{DefaultCity: "San Francisco", AutoCity: true},
		Retrieval:  RetrievalConfig{K: 5, KInternal: 5, KExternal: 5},
		Trend:      TrendConfig{Months: 12, Mode: "all"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Retrieval.KInternal <= 0 {
		cfg.Retrieval.KInternal = 5
	}
	if cfg.Retrieval.KExternal <= 0 {
		cfg.Retrieval.KExternal = 5
	}
	if cfg.Trend.Months <= 0 {
		cfg.Trend.Months = 12
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 5
		}
	}
	for _, ic := range []*IndexConfig{&cfg.Internal, &cfg.External} {
		if ic.Type == "qdrant" && ic.Qdrant != nil && ic.Qdrant.Addr == "" {
			ic.Qdrant.Addr = "localhost:6334"
		}
	}
}
