package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	file_size BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(type, is_active, project_id);

CREATE TABLE IF NOT EXISTS document_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	embedding TEXT
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON document_chunks(document_id, chunk_index);
`

// PostgresStore implements ChunkStore on PostgreSQL. With the pgvector extension
// installed it also answers nearest-neighbour queries natively.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore connects with dsn and initializes the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStore{sqlStore: sqlStore{db: db, numbered: true}}, nil
}

// NearestChunks orders chunks by pgvector cosine distance to query. It fails when the
// vector extension is missing; callers fall back to in-process scoring.
func (s *PostgresStore) NearestChunks(ctx context.Context, query []float32, filter VectorFilter, limit int) ([]Neighbor, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	q, args := nearestQuery(query, filter, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector query failed: %w", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Content, &n.Distance); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// nearestQuery builds the pgvector distance query for filter.
func nearestQuery(query []float32, filter VectorFilter, limit int) (string, []any) {
	args := []any{FormatVector(query)}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	var b strings.Builder
	b.WriteString(`SELECT c.id, c.content, c.embedding::vector <=> $1::vector AS distance
		FROM document_chunks c`)
	conds := []string{"c.embedding IS NOT NULL"}
	if filter.IDs != nil {
		conds = append(conds, "c.id = ANY("+next(pq.Array(filter.IDs))+")")
	} else {
		b.WriteString(` JOIN documents d ON d.id = c.document_id`)
		if filter.Scope.Type != "" {
			conds = append(conds, "d.type = "+next(string(filter.Scope.Type)))
		}
		if filter.Scope.ActiveOnly {
			conds = append(conds, "d.is_active = TRUE")
		}
		if len(filter.Scope.ProjectIDs) > 0 {
			conds = append(conds, "d.project_id = ANY("+next(pq.Array(filter.Scope.ProjectIDs))+")")
		}
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(conds, " AND "))
	b.WriteString(" ORDER BY distance")
	if limit > 0 {
		b.WriteString(" LIMIT " + next(limit))
	}
	return b.String(), args
}
