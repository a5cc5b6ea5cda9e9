package indexer

import (
	"sort"

	"github.com/hyperjump/ghostwriter/internal/keyword"
)

const (
	// MaxKeywords is how many keywords a chunk keeps.
	MaxKeywords = 10
	// keywordMinLength drops tokens of this many characters or fewer.
	keywordMinLength = 3
)

// ExtractKeywords returns up to MaxKeywords of the most frequent tokens in text,
// most frequent first. Tokens with equal counts keep first-seen order.
func ExtractKeywords(text string) []string {
	tokens := keyword.Tokenize(text, keywordMinLength)
	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	return order
}
