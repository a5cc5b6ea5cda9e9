package indexer

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\uFEFF", "", "\x00", "")

// Preprocess normalizes line endings to "\n" and strips byte order marks and NUL bytes,
// so paragraph breaks are seen by the chunker.
func Preprocess(text string) string {
	return lineEndings.Replace(text)
}
