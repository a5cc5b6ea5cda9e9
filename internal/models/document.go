// Package models defines core data structures for documents, chunks, queries, and search results.
package models

import (
	"fmt"
	"time"
)

// DocumentType tags what a document is used for during generation.
type DocumentType string

const (
	// DocumentTypeStyle documents describe voice and tone references.
	DocumentTypeStyle DocumentType = "style"
	// DocumentTypeContent documents carry factual reference material.
	DocumentTypeContent DocumentType = "content"
)

// ParseDocumentType validates s as a document type.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocumentTypeStyle, DocumentTypeContent:
		return DocumentType(s), nil
	default:
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidDocumentType, s, DocumentTypeStyle, DocumentTypeContent)
	}
}

// Document is an ingested unit of source text. Ownership (user, project) is opaque to retrieval.
type Document struct {
	ID         string       `json:"id" db:"id"`
	Type       DocumentType `json:"type" db:"type"`
	Filename   string       `json:"filename" db:"filename"`
	UserID     string       `json:"user_id,omitempty" db:"user_id"`
	ProjectID  string       `json:"project_id,omitempty" db:"project_id"`
	Active     bool         `json:"active" db:"is_active"`
	ChunkCount int          `json:"chunk_count" db:"chunk_count"`
	FileSize   int64        `json:"file_size" db:"file_size"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// DocumentChunk is a contiguous slice of a document's text, the unit of retrieval.
// Chunks are immutable once created except for the one-time addition of Embedding.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Keywords   []string  `json:"keywords" db:"keywords"`
	Embedding  []float32 `json:"-" db:"embedding"`
}

// HasEmbedding reports whether the chunk carries a usable vector.
func (c *DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Scope filters candidate chunks by owning document attributes.
// Empty Type matches both types; empty ProjectIDs matches every project.
type Scope struct {
	Type       DocumentType `json:"type,omitempty"`
	ProjectIDs []string     `json:"project_ids,omitempty"`
	ActiveOnly bool         `json:"active_only"`
}
