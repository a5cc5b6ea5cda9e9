// Package search merges lexical and vector similarity into one ranking over candidate chunks.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/keyword"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/vector"
)

// Result is one hybrid ranking pass.
type Result struct {
	Results []models.ScoredChunk
	// Degraded is set when the ranking used keyword scores only.
	Degraded bool
	Reason   string
	Strategy vector.Strategy
}

// Hybrid ranks candidates by a weighted sum of max-normalised keyword and vector scores.
// Embedding or vector trouble never fails a search; it falls back to keyword-only ranking.
type Hybrid struct {
	vectors *vector.Searcher
	weights Weights
	logger  *zap.Logger
}

// HybridOption configures a Hybrid.
type HybridOption func(*Hybrid)

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) HybridOption {
	return func(h *Hybrid) { h.weights = w }
}

// WithHybridLogger sets the logger for degraded passes.
func WithHybridLogger(l *zap.Logger) HybridOption {
	return func(h *Hybrid) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHybrid creates a Hybrid over a vector searcher.
func NewHybrid(vectors *vector.Searcher, opts ...HybridOption) *Hybrid {
	h := &Hybrid{vectors: vectors, weights: DefaultWeights, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Search ranks candidates against query and returns at most topK chunks with positive scores.
func (h *Hybrid) Search(ctx context.Context, query string, candidates []*models.DocumentChunk, topK int) Result {
	if len(candidates) == 0 || topK <= 0 {
		return Result{Results: []models.ScoredChunk{}, Strategy: vector.StrategyNone}
	}

	keywordNorm := NormalizeByMax(keyword.Scores(query, candidates), KeywordNormFloor)

	outcome := h.vectors.ScoreCandidates(ctx, h.vectors.EmbedQuery(ctx, query), candidates, 0)
	outcome.Log(h.logger, "hybrid")

	weights := KeywordOnlyWeights
	vectorNorm := map[string]float64{}
	if outcome.OK() {
		weights = h.weights
		vectorNorm = NormalizeByMax(outcome.ScoreMap(), VectorNormFloor)
	}

	return Result{
		Results:  Fuse(candidates, keywordNorm, vectorNorm, weights, topK),
		Degraded: !outcome.OK(),
		Reason:   outcome.Reason,
		Strategy: outcome.Strategy,
	}
}
