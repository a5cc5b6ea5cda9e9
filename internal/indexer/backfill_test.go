package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/models"
)

func TestBackfill_EmbedsAndCountsFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var chunks []*models.DocumentChunk
	for i := 0; i < 7; i++ {
		content := fmt.Sprintf("trecho %d sobre logística", i)
		if i == 3 {
			content = "trecho que causa falha"
		}
		chunks = append(chunks, &models.DocumentChunk{Content: content})
	}
	require.NoError(t, store.CreateDocument(ctx, &models.Document{Type: models.DocumentTypeContent, Active: true}, chunks))

	embedder := &selectiveEmbedder{}
	bf := NewBackfill(store, embedding.NewProvider(embedder), WithBatchSize(2), WithWorkers(3), WithRate(1000))
	res, err := bf.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Indexed: 6, Errors: 1}, res)

	embedded, err := store.CountEmbeddedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), embedded)

	// a second run only retries the failed chunk
	res, err = bf.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Indexed: 0, Errors: 1}, res)
	assert.Equal(t, 8, embedder.calls)
}

func TestBackfill_NothingToDo(t *testing.T) {
	res, err := NewBackfill(newTestStore(t), embedding.NewProvider(&selectiveEmbedder{})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{}, res)
}

func TestBackfill_RequiresEmbedder(t *testing.T) {
	_, err := NewBackfill(newTestStore(t), embedding.NewProvider(nil)).Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoEmbedder))
}

func TestBackfill_Cancelled(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateDocument(context.Background(),
		&models.Document{Type: models.DocumentTypeContent, Active: true},
		[]*models.DocumentChunk{{Content: "um"}, {Content: "dois"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBackfill(store, embedding.NewProvider(&selectiveEmbedder{})).Run(ctx)
	assert.Error(t, err)
}
