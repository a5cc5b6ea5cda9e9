// Package indexer turns raw text into stored, searchable chunks and backfills their embeddings.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/ghostwriter/internal/models"
)

const (
	// MinChunkLength is the trimmed length a chunk must exceed to be kept.
	MinChunkLength = 50
	// breakLookback is how far before the raw cut a natural break may start.
	breakLookback = 100
	// paragraphLookahead and sentenceLookahead bound how far past the raw cut a break is accepted.
	paragraphLookahead = 100
	sentenceLookahead  = 50
)

var (
	// ErrEmptyText is returned when there is nothing to chunk.
	ErrEmptyText = fmt.Errorf("%w: text is empty", models.ErrInvalidInput)
	// ErrNoChunks is returned when every produced chunk was too short to keep.
	ErrNoChunks = fmt.Errorf("%w: no chunk longer than %d characters", models.ErrInvalidInput, MinChunkLength)
)

// ChunkParams is a chunk size and overlap pair, in characters.
type ChunkParams struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// ChunkParamsFor returns the default chunking for a document type. Style references
// use longer windows so a whole passage of voice survives in one chunk.
func ChunkParamsFor(t models.DocumentType) ChunkParams {
	if t == models.DocumentTypeStyle {
		return ChunkParams{Size: 2000, Overlap: 300}
	}
	return ChunkParams{Size: 1000, Overlap: 200}
}

// ChunkText splits text into overlapping windows of about chunkSize characters, preferring
// to cut at a paragraph break and then at a sentence break near the raw offset.
// Chunks of MinChunkLength characters or fewer after trimming are dropped.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidInput, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", models.ErrInvalidInput, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", models.ErrInvalidInput, overlap, chunkSize)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	var chunks []string
	n := len(text)
	start := 0
	for start < n {
		raw := snapForward(text, start+chunkSize)
		end := raw
		if end < n {
			end = naturalBreak(text, end)
			// A break found behind the window must not stall the loop.
			if end-overlap <= start {
				end = raw
			}
		}
		chunk := strings.TrimSpace(text[start:min(end, n)])
		if utf8.RuneCountInString(chunk) > MinChunkLength {
			chunks = append(chunks, chunk)
		}
		// end stays unclamped: a window reaching past the text ends the loop here.
		start = snapStart(text, end-overlap, start)
	}
	return chunks, nil
}

// naturalBreak returns the cut offset for a window ending at end.
func naturalBreak(text string, end int) int {
	from := max(end-breakLookback, 0)
	if i := strings.Index(text[from:], "\n\n"); i >= 0 && from+i < end+paragraphLookahead {
		return from + i + 2
	}
	if i := strings.Index(text[from:], ". "); i >= 0 && from+i < end+sentenceLookahead {
		return from + i + 2
	}
	return end
}

// snapForward moves i to the next rune boundary.
func snapForward(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// snapStart moves a window start back to a rune boundary, or forward when that
// would not advance past prev.
func snapStart(text string, i, prev int) int {
	if i >= len(text) {
		return i
	}
	j := i
	for j > 0 && !utf8.RuneStart(text[j]) {
		j--
	}
	if j > prev {
		return j
	}
	return snapForward(text, i)
}
