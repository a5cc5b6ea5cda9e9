package indexer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ghostwriter/internal/models"
)

func TestChunkText_UnbrokenText(t *testing.T) {
	chunks, err := ChunkText(strings.Repeat("a", 2300), 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 700)
}

func TestChunkText_ShortTextIsDropped(t *testing.T) {
	chunks, err := ChunkText("Too short to keep.", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = ChunkText(strings.Repeat("x", 51), 1000, 200)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestChunkText_PrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("word ", 180) // 900 chars
	second := strings.Repeat("next ", 300)
	text := first + "\n\n" + second

	chunks, err := ChunkText(text, 1000, 200)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.TrimSpace(first), chunks[0])
}

func TestChunkText_FallsBackToSentenceBreak(t *testing.T) {
	text := strings.Repeat("b", 950) + ". " + strings.Repeat("c", 600)
	chunks, err := ChunkText(text, 1000, 200)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(chunks[0], "."), "first chunk should end at the sentence: %q", chunks[0][len(chunks[0])-5:])
	assert.Len(t, chunks[0], 951)
}

func TestChunkText_CoversEveryWord(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "palavra%03d ", i)
		if i%9 == 8 {
			b.WriteString("fim. ")
		}
		if i%40 == 39 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()
	chunks, err := ChunkText(text, 300, 60)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	joined := strings.Join(chunks, "\n")
	for i := 0; i < 400; i++ {
		assert.Contains(t, joined, fmt.Sprintf("palavra%03d", i))
	}
	for _, c := range chunks {
		assert.Greater(t, utf8.RuneCountInString(c), MinChunkLength)
	}
}

func TestChunkText_SmallWindowsTerminate(t *testing.T) {
	text := strings.Repeat("Ab. ", 80) + strings.Repeat("\n\nCd", 40)
	chunks, err := ChunkText(text, 60, 20)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestChunkText_Multibyte(t *testing.T) {
	text := strings.Repeat("ação ", 500)
	chunks, err := ChunkText(text, 333, 77)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk is not valid UTF-8")
	}
}

func TestChunkText_InvalidInput(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		size, overlap int
	}{
		{"zero size", "some text", 0, 0},
		{"negative overlap", "some text", 100, -1},
		{"overlap equals size", "some text", 100, 100},
		{"overlap exceeds size", "some text", 100, 150},
		{"empty text", "", 100, 10},
		{"blank text", " \n\t ", 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChunkText(tt.text, tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidInput))
		})
	}
}

func TestChunkParamsFor(t *testing.T) {
	assert.Equal(t, ChunkParams{Size: 2000, Overlap: 300}, ChunkParamsFor(models.DocumentTypeStyle))
	assert.Equal(t, ChunkParams{Size: 1000, Overlap: 200}, ChunkParamsFor(models.DocumentTypeContent))
}

func TestPreprocess(t *testing.T) {
	assert.Equal(t, "a\n\nb\nc", Preprocess("\uFEFFa\r\n\r\nb\rc"))
	assert.Equal(t, "ab", Preprocess("a\x00b"))
}
