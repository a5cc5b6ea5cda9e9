// Package config provides configuration loading and structs for the ghostwriter retrieval server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Backfill  BackfillConfig  `yaml:"backfill"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxBodyBytes limits request bodies; larger requests get 413.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// StorageConfig selects the chunk store.
type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
	DSN          string `yaml:"dsn"`
	// RecallIndexPath persists the Bleve recall index; empty keeps it in memory.
	RecallIndexPath string `yaml:"recall_index_path"`
}

// EmbeddingConfig selects and tunes the embedding model.
type EmbeddingConfig struct {
	// Provider is "openai", "vertex", "mock", or "none".
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	ProjectID     string        `yaml:"project_id"`
	Location      string        `yaml:"location"`
	Dimensions    int           `yaml:"dimensions"`
	CacheSize     int           `yaml:"cache_size"`
	CacheKey      string        `yaml:"cache_key"`
	MaxInputChars int           `yaml:"max_input_chars"`
	Timeout       time.Duration `yaml:"timeout"`
	// BatchSize is the most texts sent to the model in one request.
	BatchSize int `yaml:"batch_size"`
}

// ChunkSettings is a chunk size and overlap in characters.
type ChunkSettings struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// ChunkingConfig holds per document type chunking.
type ChunkingConfig struct {
	Style   ChunkSettings `yaml:"style"`
	Content ChunkSettings `yaml:"content"`
	// AsyncEmbedding embeds new chunks in the background after ingest.
	AsyncEmbedding *bool `yaml:"async_embedding"`
}

// AsyncEmbeddingOrDefault returns whether to embed after ingest; defaults to true when unset.
func (c *ChunkingConfig) AsyncEmbeddingOrDefault() bool {
	if c.AsyncEmbedding != nil {
		return *c.AsyncEmbedding
	}
	return true
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultTopK   int     `yaml:"default_top_k"`
	MaxTopK       int     `yaml:"max_top_k"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`
	// RecallThreshold enables the Bleve prefilter for candidate sets larger than this. 0 disables it.
	RecallThreshold int `yaml:"recall_threshold"`
}

// BackfillConfig tunes the embedding backfill job.
type BackfillConfig struct {
	BatchSize     int     `yaml:"batch_size"`
	Workers       int     `yaml:"workers"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// Load reads and parses the config file at path, expands paths, applies env overrides and defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.RecallIndexPath != "" {
		cfg.Storage.RecallIndexPath = expandPath(cfg.Storage.RecallIndexPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv fills secrets and deployment settings from the environment when the file leaves them empty.
func ApplyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.ProjectID == "" {
		cfg.Embedding.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = os.Getenv("DATABASE_URL")
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Embedding.Provider {
	case "openai", "vertex", "mock", "none":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Embedding.CacheKey {
	case "prefix", "hash":
	default:
		return fmt.Errorf("unknown embedding cache_key %q", c.Embedding.CacheKey)
	}
	for name, cs := range map[string]ChunkSettings{"style": c.Chunking.Style, "content": c.Chunking.Content} {
		if cs.Overlap >= cs.Size {
			return fmt.Errorf("chunking.%s overlap %d must be smaller than size %d", name, cs.Overlap, cs.Size)
		}
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. ":memory:" is kept as is.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
