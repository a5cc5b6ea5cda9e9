package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// RecallIndex is a Bleve full-text index over chunk content. It narrows very large
// candidate sets before exact scoring; it never produces the final ranking.
type RecallIndex struct {
	index bleve.Index
}

type recallDoc struct {
	Content    string `json:"content"`
	DocumentID string `json:"document_id"`
}

// NewRecallIndex creates or opens a Bleve index at path. An empty path keeps the index in memory.
func NewRecallIndex(path string) (*RecallIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize without stemming, closest to the exact scorer.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("document_id", bleve.NewKeywordFieldMapping())
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &RecallIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &RecallIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &RecallIndex{index: index}, nil
}

// Add indexes chunks in one batch.
func (r *RecallIndex) Add(ctx context.Context, chunks []*models.DocumentChunk) error {
	batch := r.index.NewBatch()
	for _, ch := range chunks {
		if err := batch.Index(ch.ID, recallDoc{Content: ch.Content, DocumentID: ch.DocumentID}); err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", ch.ID, err)
		}
	}
	return r.index.Batch(batch)
}

// Remove deletes chunks by ID.
func (r *RecallIndex) Remove(ctx context.Context, ids []string) error {
	batch := r.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return r.index.Batch(batch)
}

// Recall returns up to limit chunk IDs, restricted to within, that match query best.
func (r *RecallIndex) Recall(ctx context.Context, query string, within []string, limit int) ([]string, error) {
	if limit <= 0 || len(within) == 0 {
		return nil, nil
	}
	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	q := bleve.NewConjunctionQuery(match, bleve.NewDocIDQuery(within))
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Narrow keeps the chunks recalled for query, preserving their original order.
// When recall finds nothing the full candidate set is returned unchanged.
func (r *RecallIndex) Narrow(ctx context.Context, query string, chunks []*models.DocumentChunk, limit int) ([]*models.DocumentChunk, error) {
	if len(chunks) <= limit {
		return chunks, nil
	}
	within := make([]string, len(chunks))
	for i, ch := range chunks {
		within[i] = ch.ID
	}
	ids, err := r.Recall(ctx, query, within, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return chunks, nil
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]*models.DocumentChunk, 0, len(ids))
	for _, ch := range chunks {
		if _, ok := keep[ch.ID]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// DocCount returns the number of chunks in the index.
func (r *RecallIndex) DocCount() (uint64, error) {
	return r.index.DocCount()
}

// Close closes the index.
func (r *RecallIndex) Close() error {
	return r.index.Close()
}
