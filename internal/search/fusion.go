package search

import (
	"sort"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// Weights are the linear fusion weights of the two signals.
type Weights struct {
	Keyword float64
	Vector  float64
}

var (
	// DefaultWeights apply when at least one candidate has a vector score.
	DefaultWeights = Weights{Keyword: 0.3, Vector: 0.7}
	// KeywordOnlyWeights apply when no vector score is usable.
	KeywordOnlyWeights = Weights{Keyword: 1.0, Vector: 0}
)

const (
	// KeywordNormFloor keeps keyword normalisation from dividing by zero.
	KeywordNormFloor = 1.0
	// VectorNormFloor keeps vector normalisation from dividing by zero.
	VectorNormFloor = 0.001
)

// NormalizeByMax divides every score by max(scores, floor).
func NormalizeByMax(scores map[string]float64, floor float64) map[string]float64 {
	maxScore := floor
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	normalized := make(map[string]float64, len(scores))
	for id, s := range scores {
		normalized[id] = s / maxScore
	}
	return normalized
}

// Fuse combines normalised keyword and vector scores for candidates with weights w.
// Non-positive combined scores are dropped. The result is sorted highest first, ties
// in candidate order, and cut to topK.
func Fuse(candidates []*models.DocumentChunk, keywordNorm, vectorNorm map[string]float64, w Weights, topK int) []models.ScoredChunk {
	results := make([]models.ScoredChunk, 0, len(candidates))
	for _, ch := range candidates {
		score := w.Keyword*keywordNorm[ch.ID] + w.Vector*vectorNorm[ch.ID]
		if score <= 0 {
			continue
		}
		results = append(results, models.ScoredChunk{ID: ch.ID, Content: ch.Content, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:max(topK, 0)]
	}
	return results
}
