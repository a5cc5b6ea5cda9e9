// Package storage persists documents and their chunks, including serialized embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// ChunkStore defines document and chunk persistence operations.
type ChunkStore interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, scope models.Scope) ([]*models.Document, error)

	// Chunk reads
	GetChunksByIDs(ctx context.Context, ids []string) ([]*models.DocumentChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)
	ListChunks(ctx context.Context, scope models.Scope) ([]*models.DocumentChunk, error)

	// Embedding backfill
	ListUnembeddedChunks(ctx context.Context, afterID string, limit int) ([]*models.DocumentChunk, error)
	SetEmbedding(ctx context.Context, id string, vec []float32) error

	// Stats
	CountChunks(ctx context.Context) (int64, error)
	CountEmbeddedChunks(ctx context.Context) (int64, error)

	Close() error
}

// VectorFilter restricts a nearest-neighbour query. When IDs is non-nil only those
// chunks are considered and Scope is ignored.
type VectorFilter struct {
	Scope models.Scope
	IDs   []string
}

// Neighbor is a chunk with its cosine distance to the query vector.
type Neighbor struct {
	ID       string
	Content  string
	Distance float64
}

// VectorSearcher is implemented by stores with a native vector distance operator.
type VectorSearcher interface {
	NearestChunks(ctx context.Context, query []float32, filter VectorFilter, limit int) ([]Neighbor, error)
}
