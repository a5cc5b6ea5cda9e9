// Package keyword provides lexical scoring of chunks against a query and an optional Bleve recall prefilter.
package keyword

import (
	"sort"
	"strings"

	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/pkg/utils"
)

const (
	// QueryTokenMinLength drops query tokens of this many characters or fewer.
	QueryTokenMinLength = 2
	// KeywordHitScore is added per query token found in the chunk's keyword set.
	KeywordHitScore = 3
	// ContentHitScore is added per query token found anywhere in the chunk text.
	ContentHitScore = 1
	// PhraseBonus is added when the chunk contains the query prefix verbatim.
	PhraseBonus = 5
	// PhrasePrefixLength is how many query characters the phrase bonus compares.
	PhrasePrefixLength = 50
)

// Search scores chunks against query using lexical overlap only and returns the
// topK best, highest score first. Ties keep input order. Scores are raw integers.
//
// A token present in the keyword set also scores as a content hit, so keyword matches
// weigh 4 in total. That double count is the established ranking behaviour.
func Search(query string, chunks []*models.DocumentChunk, topK int) []models.ScoredChunk {
	if len(chunks) == 0 || topK <= 0 {
		return []models.ScoredChunk{}
	}
	scorer := newScorer(query)
	scored := make([]models.ScoredChunk, len(chunks))
	for i, ch := range chunks {
		scored[i] = models.ScoredChunk{ID: ch.ID, Content: ch.Content, Score: scorer.score(ch)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

// Scores returns the raw keyword score of every chunk keyed by chunk ID.
func Scores(query string, chunks []*models.DocumentChunk) map[string]float64 {
	scorer := newScorer(query)
	out := make(map[string]float64, len(chunks))
	for _, ch := range chunks {
		out[ch.ID] = scorer.score(ch)
	}
	return out
}

type scorer struct {
	tokens []string
	phrase string
}

func newScorer(query string) *scorer {
	return &scorer{
		tokens: Tokenize(query, QueryTokenMinLength),
		phrase: utils.TruncateRunes(strings.ToLower(query), PhrasePrefixLength),
	}
}

func (s *scorer) score(ch *models.DocumentChunk) float64 {
	text := strings.ToLower(ch.Content)
	score := 0
	for _, tok := range s.tokens {
		if containsString(ch.Keywords, tok) {
			score += KeywordHitScore
		}
		if strings.Contains(text, tok) {
			score += ContentHitScore
		}
	}
	if strings.Contains(text, s.phrase) {
		score += PhraseBonus
	}
	return float64(score)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
