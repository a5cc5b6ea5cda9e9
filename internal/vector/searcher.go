package vector

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// Searcher runs vector passes against a chunk store.
type Searcher struct {
	store    storage.ChunkStore
	provider *embedding.Provider
	logger   *zap.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets a logger for native path fallbacks.
func WithLogger(l *zap.Logger) SearcherOption {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher.
func NewSearcher(store storage.ChunkStore, provider *embedding.Provider, opts ...SearcherOption) *Searcher {
	s := &Searcher{store: store, provider: provider, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedQuery returns the query vector, empty when embeddings are unavailable.
func (s *Searcher) EmbedQuery(ctx context.Context, query string) []float32 {
	return s.provider.Embed(ctx, query)
}

// Search embeds query and scores every chunk in scope.
func (s *Searcher) Search(ctx context.Context, query string, scope models.Scope, topK int) Outcome {
	vec := s.EmbedQuery(ctx, query)
	if len(vec) == 0 {
		return degraded(StrategyNone, ReasonNoQueryEmbedding)
	}
	if out, ok := s.native(ctx, vec, storage.VectorFilter{Scope: scope}, topK); ok {
		return out
	}
	chunks, err := s.store.ListChunks(ctx, scope)
	if err != nil {
		s.logger.Warn("vector scan failed", zap.Error(err))
		return degraded(StrategyInProcess, ReasonStoreError)
	}
	return inProcess(vec, chunks, topK)
}

// ScoreCandidates scores a fixed candidate set against an already embedded query. Only
// candidates carrying an embedding are considered. topK <= 0 keeps every positive score.
func (s *Searcher) ScoreCandidates(ctx context.Context, vec []float32, candidates []*models.DocumentChunk, topK int) Outcome {
	if len(vec) == 0 {
		return degraded(StrategyNone, ReasonNoQueryEmbedding)
	}
	ids := make([]string, 0, len(candidates))
	for _, ch := range candidates {
		if ch.HasEmbedding() {
			ids = append(ids, ch.ID)
		}
	}
	if len(ids) == 0 {
		return degraded(StrategyNone, ReasonNoEmbeddedChunks)
	}
	limit := topK
	if limit <= 0 {
		limit = len(ids)
	}
	// Candidates that were never persisted come back from the store as no rows, so an
	// empty native answer still falls back to the embeddings held in memory.
	if out, ok := s.native(ctx, vec, storage.VectorFilter{IDs: ids}, limit); ok && out.OK() {
		return out
	}
	return inProcess(vec, candidates, topK)
}

// native runs the store's distance operator when it has one. ok is false when the
// store lacks the operator or the query failed, and the caller should fall back.
func (s *Searcher) native(ctx context.Context, vec []float32, filter storage.VectorFilter, limit int) (Outcome, bool) {
	vs, ok := s.store.(storage.VectorSearcher)
	if !ok {
		return Outcome{}, false
	}
	neighbors, err := vs.NearestChunks(ctx, vec, filter, limit)
	if err != nil {
		s.logger.Debug("native vector search unavailable, scoring in process", zap.Error(err))
		return Outcome{}, false
	}
	scored := make([]models.ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		if sim := 1 - n.Distance; sim > 0 {
			scored = append(scored, models.ScoredChunk{ID: n.ID, Content: n.Content, Score: sim})
		}
	}
	return success(StrategyNative, rank(scored, limit)), true
}

func inProcess(vec []float32, chunks []*models.DocumentChunk, topK int) Outcome {
	return success(StrategyInProcess, ScoreChunks(vec, chunks, topK))
}

func success(strategy Strategy, scores []models.ScoredChunk) Outcome {
	if len(scores) == 0 {
		return degraded(strategy, ReasonNoSimilarity)
	}
	return Outcome{Status: StatusSuccess, Scores: scores, Strategy: strategy}
}
