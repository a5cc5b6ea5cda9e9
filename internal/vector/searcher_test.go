package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// fixedEmbedder maps texts to vectors; unknown texts fail.
type fixedEmbedder map[string][]float32

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f[text]; ok {
		return v, nil
	}
	return nil, errors.New("unknown text")
}

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f fixedEmbedder) Dimensions() int { return 2 }
func (f fixedEmbedder) Close() error    { return nil }

// nativeStore adds a scripted distance operator to the SQLite store.
type nativeStore struct {
	*storage.SQLiteStore
	neighbors []storage.Neighbor
	err       error
	filter    storage.VectorFilter
}

func (n *nativeStore) NearestChunks(ctx context.Context, query []float32, filter storage.VectorFilter, limit int) ([]storage.Neighbor, error) {
	n.filter = filter
	return n.neighbors, n.err
}

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedChunks(t *testing.T, store storage.ChunkStore, docType models.DocumentType, chunks ...*models.DocumentChunk) {
	t.Helper()
	doc := &models.Document{Type: docType, Active: true}
	require.NoError(t, store.CreateDocument(context.Background(), doc, chunks))
}

func TestScoreChunks_Ordering(t *testing.T) {
	chunks := []*models.DocumentChunk{
		{ID: "orthogonal", Embedding: []float32{0, 1}},
		{ID: "aligned", Embedding: []float32{1, 0}},
		{ID: "none"},
		{ID: "half", Embedding: []float32{1, 1}},
	}
	got := ScoreChunks([]float32{1, 0}, chunks, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "aligned", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "half", got[1].ID)

	assert.Len(t, ScoreChunks([]float32{1, 0}, chunks, 1), 1)
	assert.Empty(t, ScoreChunks(nil, chunks, 10))
}

func TestSearcher_InProcess(t *testing.T) {
	store := newStore(t)
	seedChunks(t, store, models.DocumentTypeContent,
		&models.DocumentChunk{Content: "east", Embedding: []float32{1, 0}},
		&models.DocumentChunk{Content: "north", Embedding: []float32{0, 1}},
		&models.DocumentChunk{Content: "pending"},
	)
	seedChunks(t, store, models.DocumentTypeStyle,
		&models.DocumentChunk{Content: "style east", Embedding: []float32{1, 0}},
	)
	p := embedding.NewProvider(fixedEmbedder{"go east": {1, 0}})
	s := NewSearcher(store, p)

	out := s.Search(context.Background(), "go east", models.Scope{Type: models.DocumentTypeContent, ActiveOnly: true}, 5)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, StrategyInProcess, out.Strategy)
	require.Len(t, out.Scores, 1)
	assert.Equal(t, "east", out.Scores[0].Content)
	assert.True(t, out.OK())
}

func TestSearcher_NoQueryEmbedding(t *testing.T) {
	s := NewSearcher(newStore(t), embedding.NewProvider(nil))
	out := s.Search(context.Background(), "anything", models.Scope{}, 5)
	assert.Equal(t, StatusDegraded, out.Status)
	assert.Equal(t, StrategyNone, out.Strategy)
	assert.Equal(t, ReasonNoQueryEmbedding, out.Reason)
	assert.False(t, out.OK())
}

func TestSearcher_NativePreferred(t *testing.T) {
	ns := &nativeStore{
		SQLiteStore: newStore(t),
		neighbors: []storage.Neighbor{
			{ID: "a", Content: "a", Distance: 0.1},
			{ID: "b", Content: "b", Distance: 1.0},
			{ID: "c", Content: "c", Distance: 0.4},
		},
	}
	s := NewSearcher(ns, embedding.NewProvider(fixedEmbedder{"q": {1, 0}}))
	candidates := []*models.DocumentChunk{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0, 1}},
		{ID: "c", Embedding: []float32{1, 1}},
		{ID: "d"},
	}
	out := s.ScoreCandidates(context.Background(), []float32{1, 0}, candidates, 0)
	assert.Equal(t, StrategyNative, out.Strategy)
	assert.Equal(t, []string{"a", "b", "c"}, ns.filter.IDs, "only embedded candidates are sent")
	require.Len(t, out.Scores, 2, "distance 1.0 means similarity 0 and is dropped")
	assert.Equal(t, "a", out.Scores[0].ID)
	assert.InDelta(t, 0.9, out.Scores[0].Score, 1e-9)
	assert.Equal(t, "c", out.Scores[1].ID)
}

func TestSearcher_NativeFailureFallsBack(t *testing.T) {
	ns := &nativeStore{SQLiteStore: newStore(t), err: errors.New("type vector does not exist")}
	s := NewSearcher(ns, embedding.NewProvider(fixedEmbedder{}))
	candidates := []*models.DocumentChunk{
		{ID: "x", Embedding: []float32{1, 0}},
		{ID: "y", Embedding: []float32{0, 1}},
	}
	out := s.ScoreCandidates(context.Background(), []float32{1, 0}, candidates, 0)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, StrategyInProcess, out.Strategy)
	require.Len(t, out.Scores, 1)
	assert.Equal(t, "x", out.Scores[0].ID)
}

func TestSearcher_NoEmbeddedCandidates(t *testing.T) {
	s := NewSearcher(newStore(t), embedding.NewProvider(fixedEmbedder{}))
	out := s.ScoreCandidates(context.Background(), []float32{1, 0}, []*models.DocumentChunk{{ID: "a"}}, 3)
	assert.Equal(t, StatusDegraded, out.Status)
	assert.Equal(t, ReasonNoEmbeddedChunks, out.Reason)
	assert.Empty(t, out.ScoreMap())
}

func TestSearcher_NativeNoRowsFallsBack(t *testing.T) {
	ns := &nativeStore{SQLiteStore: newStore(t)}
	s := NewSearcher(ns, embedding.NewProvider(fixedEmbedder{}))
	candidates := []*models.DocumentChunk{
		{ID: "unsaved-1", Embedding: []float32{0, 1}},
		{ID: "unsaved-2", Embedding: []float32{1, 0.2}},
	}
	out := s.ScoreCandidates(context.Background(), []float32{1, 0}, candidates, 0)
	assert.Equal(t, []string{"unsaved-1", "unsaved-2"}, ns.filter.IDs, "native operator is tried first")
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, StrategyInProcess, out.Strategy)
	require.Len(t, out.Scores, 1)
	assert.Equal(t, "unsaved-2", out.Scores[0].ID)
}
