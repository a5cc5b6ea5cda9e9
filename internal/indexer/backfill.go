package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// ErrNoEmbedder is returned by Backfill.Run when no embedding provider is configured.
var ErrNoEmbedder = errors.New("embedding provider not configured")

// BackfillResult counts the outcome of a backfill run.
type BackfillResult struct {
	Indexed int `json:"indexed"`
	Errors  int `json:"errors"`
}

// Backfill embeds every stored chunk that has no embedding yet.
type Backfill struct {
	store     storage.ChunkStore
	provider  *embedding.Provider
	batchSize int
	workers   int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// BackfillOption configures a Backfill.
type BackfillOption func(*Backfill)

// WithBatchSize sets how many unembedded chunks are read per page.
func WithBatchSize(n int) BackfillOption {
	return func(b *Backfill) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithWorkers sets how many chunks are embedded concurrently.
func WithWorkers(n int) BackfillOption {
	return func(b *Backfill) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithRate caps embedding requests per second. Zero or negative means unlimited.
func WithRate(perSecond float64) BackfillOption {
	return func(b *Backfill) {
		if perSecond <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBackfillLogger sets a logger for progress output.
func WithBackfillLogger(l *zap.Logger) BackfillOption {
	return func(b *Backfill) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackfill creates a backfill over store using provider.
func NewBackfill(store storage.ChunkStore, provider *embedding.Provider, opts ...BackfillOption) *Backfill {
	b := &Backfill{
		store:     store,
		provider:  provider,
		batchSize: 50,
		workers:   4,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run pages through unembedded chunks and embeds each one. A chunk whose embedding comes
// back empty or cannot be stored counts as an error and is skipped; the run continues.
func (b *Backfill) Run(ctx context.Context) (BackfillResult, error) {
	if !b.provider.Enabled() {
		return BackfillResult{}, ErrNoEmbedder
	}

	var indexed, failed atomic.Int64
	afterID := ""
	for {
		page, err := b.store.ListUnembeddedChunks(ctx, afterID, b.batchSize)
		if err != nil {
			return result(&indexed, &failed), fmt.Errorf("failed to list unembedded chunks: %w", err)
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.workers)
		for _, ch := range page {
			g.Go(func() error {
				if err := b.limiter.Wait(gctx); err != nil {
					return err
				}
				vec := b.provider.Embed(gctx, ch.Content)
				if len(vec) == 0 {
					failed.Add(1)
					return nil
				}
				if err := b.store.SetEmbedding(gctx, ch.ID, vec); err != nil {
					b.logger.Warn("storing embedding failed", zap.String("chunk_id", ch.ID), zap.Error(err))
					failed.Add(1)
					return nil
				}
				indexed.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result(&indexed, &failed), fmt.Errorf("backfill interrupted: %w", err)
		}
		b.logger.Debug("backfill page done",
			zap.Int("page", len(page)),
			zap.Int64("indexed", indexed.Load()),
			zap.Int64("errors", failed.Load()))

		if len(page) < b.batchSize {
			break
		}
	}

	res := result(&indexed, &failed)
	b.logger.Info("embedding backfill complete", zap.Int("indexed", res.Indexed), zap.Int("errors", res.Errors))
	return res, nil
}

func result(indexed, failed *atomic.Int64) BackfillResult {
	return BackfillResult{Indexed: int(indexed.Load()), Errors: int(failed.Load())}
}
