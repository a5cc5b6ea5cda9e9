package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// sqlStore implements ChunkStore over database/sql. Queries are written with "?"
// placeholders and rewritten by rebind for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

const documentColumns = `d.id, d.type, d.filename, d.user_id, d.project_id, d.is_active, d.chunk_count, d.file_size, d.created_at`

const chunkColumns = `c.id, c.document_id, c.chunk_index, c.content, c.keywords, c.embedding`

// rebind turns "?" placeholders into "$1", "$2", ... when the driver needs it.
func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// scopeWhere builds the WHERE conditions for a scope over documents aliased "d".
func scopeWhere(scope models.Scope) (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if scope.Type != "" {
		conds = append(conds, "d.type = ?")
		args = append(args, string(scope.Type))
	}
	if scope.ActiveOnly {
		conds = append(conds, "d.is_active = ?")
		args = append(args, true)
	}
	if len(scope.ProjectIDs) > 0 {
		conds = append(conds, "d.project_id IN ("+placeholders(len(scope.ProjectIDs))+")")
		for _, p := range scope.ProjectIDs {
			args = append(args, p)
		}
	}
	return strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// CreateDocument inserts a document and its chunks in one transaction. Missing IDs are
// generated; ChunkCount and CreatedAt are set on doc.
func (s *sqlStore) CreateDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.ChunkCount = len(chunks)
	doc.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO documents (id, type, filename, user_id, project_id, is_active, chunk_count, file_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, string(doc.Type), doc.Filename, doc.UserID, doc.ProjectID, doc.Active, doc.ChunkCount, doc.FileSize, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO document_chunks (id, document_id, chunk_index, content, keywords, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, ch := range chunks {
		if ch.ID == "" {
			ch.ID = uuid.New().String()
		}
		ch.DocumentID = doc.ID
		ch.ChunkIndex = i
		keywords, err := json.Marshal(nonNil(ch.Keywords))
		if err != nil {
			return fmt.Errorf("failed to marshal keywords: %w", err)
		}
		var embedding sql.NullString
		if ch.HasEmbedding() {
			embedding = sql.NullString{String: FormatVector(ch.Embedding), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.ChunkIndex, ch.Content, string(keywords), embedding); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *sqlStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`), id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document; its chunks go with it.
func (s *sqlStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Chunks are removed explicitly as well, for connections opened without foreign keys.
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM document_chunks WHERE document_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ListDocuments returns the documents in scope, newest first.
func (s *sqlStore) ListDocuments(ctx context.Context, scope models.Scope) ([]*models.Document, error) {
	where, args := scopeWhere(scope)
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+documentColumns+` FROM documents d WHERE `+where+` ORDER BY d.created_at DESC, d.id`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetChunksByIDs returns the chunks with the given IDs, ordered by document and chunk index.
// Unknown IDs are skipped.
func (s *sqlStore) GetChunksByIDs(ctx context.Context, ids []string) ([]*models.DocumentChunk, error) {
	if len(ids) == 0 {
		return []*models.DocumentChunk{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM document_chunks c
		WHERE c.id IN (`+placeholders(len(ids))+`) ORDER BY c.document_id, c.chunk_index`, args...)
}

// GetChunksByDocumentID returns all chunks for a document ordered by chunk_index.
func (s *sqlStore) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM document_chunks c
		WHERE c.document_id = ? ORDER BY c.chunk_index`, docID)
}

// ListChunks returns every chunk whose document is in scope, in a stable order.
func (s *sqlStore) ListChunks(ctx context.Context, scope models.Scope) ([]*models.DocumentChunk, error) {
	where, args := scopeWhere(scope)
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE `+where+` ORDER BY d.created_at, c.document_id, c.chunk_index`, args...)
}

// ListUnembeddedChunks pages through chunks without an embedding, ordered by ID.
func (s *sqlStore) ListUnembeddedChunks(ctx context.Context, afterID string, limit int) ([]*models.DocumentChunk, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM document_chunks c
		WHERE c.embedding IS NULL AND c.id > ? ORDER BY c.id LIMIT ?`, afterID, limit)
}

// SetEmbedding stores vec for a chunk that has none yet. An existing embedding is left untouched.
func (s *sqlStore) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %s", models.ErrInvalidInput, id)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE document_chunks SET embedding = ? WHERE id = ? AND embedding IS NULL`),
		FormatVector(vec), id)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// CountChunks returns the total number of chunks.
func (s *sqlStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// CountEmbeddedChunks returns the number of chunks that carry an embedding.
func (s *sqlStore) CountEmbeddedChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE embedding IS NOT NULL`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) queryChunks(ctx context.Context, query string, args ...any) ([]*models.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []*models.DocumentChunk{}
	for rows.Next() {
		var ch models.DocumentChunk
		var keywords string
		var embedding sql.NullString
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content, &keywords, &embedding); err != nil {
			return nil, err
		}
		ch.Keywords = decodeKeywords(keywords)
		if embedding.Valid {
			// A vector that does not parse is treated as missing.
			if vec, err := ParseVector(embedding.String); err == nil && len(vec) > 0 {
				ch.Embedding = vec
			}
		}
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var docType string
	if err := row.Scan(&doc.ID, &docType, &doc.Filename, &doc.UserID, &doc.ProjectID, &doc.Active,
		&doc.ChunkCount, &doc.FileSize, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.Type = models.DocumentType(docType)
	return &doc, nil
}

func decodeKeywords(raw string) []string {
	var kw []string
	if raw == "" || json.Unmarshal([]byte(raw), &kw) != nil || kw == nil {
		return []string{}
	}
	return kw
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
