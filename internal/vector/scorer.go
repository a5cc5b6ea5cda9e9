package vector

import (
	"sort"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// ScoreChunks computes cosine similarity between query and every chunk that carries an
// embedding. Non-positive similarities are dropped; the rest are sorted highest first,
// ties in input order. topK <= 0 keeps everything.
func ScoreChunks(query []float32, chunks []*models.DocumentChunk, topK int) []models.ScoredChunk {
	scored := make([]models.ScoredChunk, 0, len(chunks))
	if len(query) == 0 {
		return scored
	}
	for _, ch := range chunks {
		if !ch.HasEmbedding() {
			continue
		}
		if sim := CosineSimilarity(query, ch.Embedding); sim > 0 {
			scored = append(scored, models.ScoredChunk{ID: ch.ID, Content: ch.Content, Score: sim})
		}
	}
	return rank(scored, topK)
}

func rank(scored []models.ScoredChunk, topK int) []models.ScoredChunk {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}
