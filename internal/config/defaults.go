package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ghostwriter/data/ghostwriter.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "none"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheKey == "" {
		cfg.Embedding.CacheKey = "prefix"
	}
	if cfg.Embedding.MaxInputChars == 0 {
		cfg.Embedding.MaxInputChars = 8000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 15 * time.Second
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 8
	}
	if cfg.Chunking.Style.Size == 0 {
		cfg.Chunking.Style = ChunkSettings{Size: 2000, Overlap: 300}
	}
	if cfg.Chunking.Content.Size == 0 {
		cfg.Chunking.Content = ChunkSettings{Size: 1000, Overlap: 200}
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 4
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.VectorWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.VectorWeight = 0.7
	}
	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = 50
	}
	if cfg.Backfill.Workers == 0 {
		cfg.Backfill.Workers = 4
	}
	if cfg.Backfill.RatePerSecond == 0 {
		cfg.Backfill.RatePerSecond = 5
	}
}
