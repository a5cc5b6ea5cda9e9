package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/config"
	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/indexer"
	"github.com/hyperjump/ghostwriter/internal/keyword"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/search"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Store    storage.ChunkStore
	Provider *embedding.Provider
	Recall   *keyword.RecallIndex
	Engine   *search.Engine
	Indexer  *indexer.Indexer
	Backfill *indexer.Backfill
}

// Close waits for background embedding and releases every resource.
func (c *Components) Close() {
	if c.Indexer != nil {
		_ = c.Indexer.Wait()
	}
	if c.Recall != nil {
		_ = c.Recall.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ChunkStore, error) {
	switch cfg.Driver {
	case "postgres":
		return storage.NewPostgresStore(ctx, cfg.DSN)
	default:
		return storage.NewSQLiteStore(cfg.DatabasePath)
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Store: store}
	logger.Info("storage initialized", zap.String("driver", cfg.Storage.Driver), zap.String("sqlite_build", storage.DriverMode()))

	c.Provider, err = embedding.NewProviderFromConfig(ctx, cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if !c.Provider.Enabled() {
		logger.Warn("no embedding provider configured, search runs keyword only")
	}

	engineOpts := []search.EngineOption{
		search.WithLogger(logger),
		search.WithTopK(cfg.Search.DefaultTopK, cfg.Search.MaxTopK),
		search.WithEngineWeights(search.Weights{Keyword: cfg.Search.KeywordWeight, Vector: cfg.Search.VectorWeight}),
	}
	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithAsyncEmbedding(cfg.Chunking.AsyncEmbeddingOrDefault()),
		indexer.WithChunkParams(models.DocumentTypeStyle, indexer.ChunkParams{Size: cfg.Chunking.Style.Size, Overlap: cfg.Chunking.Style.Overlap}),
		indexer.WithChunkParams(models.DocumentTypeContent, indexer.ChunkParams{Size: cfg.Chunking.Content.Size, Overlap: cfg.Chunking.Content.Overlap}),
		indexer.WithEmbedConcurrency(cfg.Backfill.Workers),
	}
	if cfg.Search.RecallThreshold > 0 {
		c.Recall, err = keyword.NewRecallIndex(cfg.Storage.RecallIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize recall index: %w", err)
		}
		engineOpts = append(engineOpts, search.WithRecall(c.Recall, cfg.Search.RecallThreshold))
		idxOpts = append(idxOpts, indexer.WithRecallIndex(c.Recall))
	}

	c.Engine = search.NewEngine(store, c.Provider, engineOpts...)
	c.Indexer = indexer.NewIndexer(store, c.Provider, idxOpts...)
	c.Backfill = indexer.NewBackfill(store, c.Provider,
		indexer.WithBatchSize(cfg.Backfill.BatchSize),
		indexer.WithWorkers(cfg.Backfill.Workers),
		indexer.WithRate(cfg.Backfill.RatePerSecond),
		indexer.WithBackfillLogger(logger),
	)

	if c.Recall != nil && recallEmpty(c.Recall) {
		n, err := c.Indexer.RebuildRecall(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
		logger.Info("recall index loaded", zap.Int("chunks", n))
	}
	return c, nil
}

func recallEmpty(r *keyword.RecallIndex) bool {
	n, err := r.DocCount()
	return err != nil || n == 0
}
