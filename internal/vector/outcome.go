package vector

import (
	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// Status tells whether a vector pass produced usable scores.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDegraded Status = "degraded"
)

// Strategy names how similarities were computed.
type Strategy string

const (
	StrategyNative    Strategy = "native"
	StrategyInProcess Strategy = "in_process"
	StrategyNone      Strategy = "none"
)

// Degradation reasons.
const (
	ReasonNoQueryEmbedding = "query embedding unavailable"
	ReasonNoEmbeddedChunks = "no candidate chunk carries an embedding"
	ReasonNoSimilarity     = "no candidate has positive similarity"
	ReasonStoreError       = "chunk store scan failed"
)

// Outcome is the result of one vector pass. Scores are positive, sorted highest first.
type Outcome struct {
	Status   Status
	Scores   []models.ScoredChunk
	Strategy Strategy
	Reason   string
}

// OK reports whether the pass produced at least one usable score.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess && len(o.Scores) > 0
}

// ScoreMap returns the scores keyed by chunk ID.
func (o Outcome) ScoreMap() map[string]float64 {
	m := make(map[string]float64, len(o.Scores))
	for _, s := range o.Scores {
		m[s.ID] = s.Score
	}
	return m
}

// Log writes the outcome once: debug on success, warn when degraded.
func (o Outcome) Log(logger *zap.Logger, pass string) {
	if o.Status == StatusDegraded {
		logger.Warn("vector search degraded", zap.String("pass", pass), zap.String("strategy", string(o.Strategy)), zap.String("reason", o.Reason))
		return
	}
	logger.Debug("vector search", zap.String("pass", pass), zap.String("strategy", string(o.Strategy)), zap.Int("scored", len(o.Scores)))
}

func degraded(strategy Strategy, reason string) Outcome {
	return Outcome{Status: StatusDegraded, Scores: []models.ScoredChunk{}, Strategy: strategy, Reason: reason}
}
