package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/keyword"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/storage"
	"github.com/hyperjump/ghostwriter/internal/vector"
)

// Engine answers scoped search requests: it loads candidate chunks from the store and
// ranks them.
type Engine struct {
	store           storage.ChunkStore
	vectors         *vector.Searcher
	hybrid          *Hybrid
	recall          *keyword.RecallIndex
	recallThreshold int
	defaultTopK     int
	maxTopK         int
	weights         Weights
	logger          *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecall narrows candidate sets larger than threshold to the Bleve recall hits before
// ranking. threshold <= 0 disables narrowing.
func WithRecall(idx *keyword.RecallIndex, threshold int) EngineOption {
	return func(e *Engine) {
		e.recall = idx
		e.recallThreshold = threshold
	}
}

// WithTopK sets the default and maximum result counts.
func WithTopK(defaultTopK, maxTopK int) EngineOption {
	return func(e *Engine) {
		e.defaultTopK = defaultTopK
		e.maxTopK = maxTopK
	}
}

// WithEngineWeights overrides the hybrid fusion weights.
func WithEngineWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// NewEngine creates an engine over store, embedding queries with provider.
func NewEngine(store storage.ChunkStore, provider *embedding.Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		defaultTopK: models.DefaultTopK,
		maxTopK:     models.MaxTopK,
		weights:     DefaultWeights,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.vectors = vector.NewSearcher(store, provider, vector.WithLogger(e.logger))
	e.hybrid = NewHybrid(e.vectors, WithWeights(e.weights), WithHybridLogger(e.logger))
	return e
}

// Search runs a hybrid search over the active chunks in the request's scope.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if err := ProcessRequest(req, e.defaultTopK, e.maxTopK); err != nil {
		return nil, err
	}
	candidates, err := e.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	res := e.hybrid.Search(ctx, req.Query, candidates, req.TopK)
	e.logger.Debug("hybrid search",
		zap.String("query", req.Query),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(res.Results)),
		zap.Bool("degraded", res.Degraded))
	return &models.SearchResponse{
		Query:     req.Query,
		Results:   res.Results,
		Degraded:  res.Degraded,
		Reason:    res.Reason,
		Strategy:  string(res.Strategy),
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// KeywordSearch ranks the request's scope by keyword overlap alone.
func (e *Engine) KeywordSearch(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if err := ProcessRequest(req, e.defaultTopK, e.maxTopK); err != nil {
		return nil, err
	}
	candidates, err := e.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Query:     req.Query,
		Results:   keyword.Search(req.Query, candidates, req.TopK),
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// VectorSearch ranks the request's scope by embedding similarity alone. When embeddings
// are unavailable the response is empty and marked degraded.
func (e *Engine) VectorSearch(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if err := ProcessRequest(req, e.defaultTopK, e.maxTopK); err != nil {
		return nil, err
	}
	out := e.vectors.Search(ctx, req.Query, req.Scope(), req.TopK)
	out.Log(e.logger, "vector")
	return &models.SearchResponse{
		Query:     req.Query,
		Results:   out.Scores,
		Degraded:  out.Status == vector.StatusDegraded,
		Reason:    out.Reason,
		Strategy:  string(out.Strategy),
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

func (e *Engine) candidates(ctx context.Context, req *models.SearchRequest) ([]*models.DocumentChunk, error) {
	chunks, err := e.store.ListChunks(ctx, req.Scope())
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate chunks: %w", err)
	}
	if e.recall == nil || e.recallThreshold <= 0 || len(chunks) <= e.recallThreshold {
		return chunks, nil
	}
	narrowed, err := e.recall.Narrow(ctx, req.Query, chunks, e.recallThreshold)
	if err != nil {
		e.logger.Warn("recall prefilter failed, ranking all candidates", zap.Error(err))
		return chunks, nil
	}
	return narrowed, nil
}
