package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ghostwriter/internal/models"
)

func TestNearestQuery_IDs(t *testing.T) {
	q, args := nearestQuery([]float32{1, 0}, VectorFilter{IDs: []string{"a", "b"}}, 5)
	assert.Contains(t, q, "c.embedding::vector <=> $1::vector")
	assert.Contains(t, q, "c.id = ANY($2)")
	assert.Contains(t, q, "LIMIT $3")
	assert.NotContains(t, q, "JOIN documents")
	require.Len(t, args, 3)
	assert.Equal(t, "[1,0]", args[0])
	assert.Equal(t, 5, args[2])
}

func TestNearestQuery_Scope(t *testing.T) {
	scope := models.Scope{Type: models.DocumentTypeContent, ProjectIDs: []string{"p1"}, ActiveOnly: true}
	q, args := nearestQuery([]float32{0.5}, VectorFilter{Scope: scope}, 0)
	assert.Contains(t, q, "JOIN documents d")
	assert.Contains(t, q, "d.type = $2")
	assert.Contains(t, q, "d.is_active = TRUE")
	assert.Contains(t, q, "d.project_id = ANY($3)")
	assert.False(t, strings.Contains(q, "LIMIT"))
	assert.Len(t, args, 3)
}

func TestRebind(t *testing.T) {
	s := &sqlStore{numbered: true}
	assert.Equal(t, "a = $1 AND b IN ($2,$3)", s.rebind("a = ? AND b IN (?,?)"))
	plain := &sqlStore{}
	assert.Equal(t, "a = ?", plain.rebind("a = ?"))
}

// Runs against a live database when GHOSTWRITER_TEST_POSTGRES_DSN is set.
func TestPostgresStore_Live(t *testing.T) {
	dsn := os.Getenv("GHOSTWRITER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GHOSTWRITER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	doc := &models.Document{Type: models.DocumentTypeContent, Filename: "pg.txt", Active: true}
	chunks := []*models.DocumentChunk{
		{Content: "first", Embedding: []float32{1, 0}},
		{Content: "second", Embedding: []float32{0, 1}},
	}
	require.NoError(t, store.CreateDocument(ctx, doc, chunks))
	defer store.DeleteDocument(ctx, doc.ID)

	got, err := store.NearestChunks(ctx, []float32{1, 0}, VectorFilter{IDs: []string{chunks[0].ID, chunks[1].ID}}, 2)
	if err != nil {
		t.Skipf("pgvector not available: %v", err)
	}
	require.Len(t, got, 2)
	assert.Equal(t, chunks[0].ID, got[0].ID)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}
