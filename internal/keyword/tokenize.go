package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// accentedLetters are the Portuguese letters kept alongside word characters.
const accentedLetters = "áéíóúàèìòùâêîôûãõç"

// Normalize lowercases text and replaces every rune that is not a word character,
// whitespace, or an accented letter of the ingestion language with a space.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) || strings.ContainsRune(accentedLetters, r) {
			return r
		}
		return ' '
	}, lower)
}

// Tokenize normalizes text and returns the whitespace-separated tokens longer than minLen characters.
func Tokenize(text string, minLen int) []string {
	fields := strings.Fields(Normalize(text))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
