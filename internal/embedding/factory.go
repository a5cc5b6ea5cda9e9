package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/config"
)

// NewEmbedder builds the embedder named by cfg.Provider. Provider "none" returns a nil
// Embedder and no error.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, WithBaseURL(cfg.BaseURL), WithDimensions(cfg.Dimensions))
	case "vertex":
		return NewVertexEmbedder(ctx, cfg.ProjectID, cfg.Model, WithLocation(cfg.Location), WithVertexDimensions(cfg.Dimensions))
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewProviderFromConfig builds the embedder, its cache, and the Provider around them.
func NewProviderFromConfig(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (*Provider, error) {
	e, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	key := PrefixKey(100)
	if cfg.CacheKey == "hash" {
		key = HashKey
	}
	cache, err := NewCache(cfg.CacheSize, key)
	if err != nil {
		return nil, err
	}
	if logger != nil && e != nil {
		logger.Info("embedding provider ready", zap.String("provider", cfg.Provider), zap.Int("dimensions", e.Dimensions()))
	}
	return NewProvider(e,
		WithCache(cache),
		WithMaxInputChars(cfg.MaxInputChars),
		WithTimeout(cfg.Timeout),
		WithBatchSize(cfg.BatchSize),
		WithLogger(logger),
	), nil
}
