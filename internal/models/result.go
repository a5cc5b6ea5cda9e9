package models

// ScoredChunk is a transient (id, content, score) triple produced during one ranking pass.
// Scores are normalized per pass and must not be compared across calls or persisted.
type ScoredChunk struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Query   string        `json:"query"`
	Results []ScoredChunk `json:"results"`
	// Degraded is set when the vector signal could not be used and ranking fell back to keywords only.
	Degraded bool `json:"degraded"`
	// Reason explains the degradation, empty on success.
	Reason    string `json:"reason,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	QueryTime int64  `json:"query_time_ms"`
}
