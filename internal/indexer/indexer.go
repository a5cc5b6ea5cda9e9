package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/ghostwriter/internal/embedding"
	"github.com/hyperjump/ghostwriter/internal/keyword"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// IngestInput is a document to store and index.
type IngestInput struct {
	Filename  string              `json:"filename"`
	Type      models.DocumentType `json:"type"`
	Content   string              `json:"content"`
	UserID    string              `json:"user_id,omitempty"`
	ProjectID string              `json:"project_id,omitempty"`
}

// Indexer chunks documents, extracts keywords, stores everything, and embeds new chunks.
type Indexer struct {
	store    storage.ChunkStore
	provider *embedding.Provider
	recall   *keyword.RecallIndex
	params   map[models.DocumentType]ChunkParams
	async    bool
	logger   *zap.Logger

	// Background embedding. Ingest never waits on it: jobs beyond the running workers
	// queue in backlog, and past backlogCap their chunks are left for backfill.
	pending    *errgroup.Group
	mu         sync.Mutex
	workers    int
	active     int
	backlog    []embedJob
	backlogCap int
}

type embedJob struct {
	ctx    context.Context
	docID  string
	chunks []*models.DocumentChunk
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (document ingested, embedding results, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithRecallIndex keeps a Bleve recall index in step with stored chunks.
func WithRecallIndex(r *keyword.RecallIndex) IndexerOption {
	return func(idx *Indexer) { idx.recall = r }
}

// WithChunkParams overrides the chunking for one document type.
func WithChunkParams(t models.DocumentType, p ChunkParams) IndexerOption {
	return func(idx *Indexer) {
		if p.Size > 0 {
			idx.params[t] = p
		}
	}
}

// WithAsyncEmbedding chooses between embedding new chunks in the background (true,
// the default) or before Ingest returns (false).
func WithAsyncEmbedding(async bool) IndexerOption {
	return func(idx *Indexer) { idx.async = async }
}

// WithEmbedConcurrency bounds how many documents are embedded in the background at once.
func WithEmbedConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithEmbedBacklog sets how many documents may wait for a background worker.
func WithEmbedBacklog(n int) IndexerOption {
	return func(idx *Indexer) {
		if n >= 0 {
			idx.backlogCap = n
		}
	}
}

// NewIndexer creates an indexer. provider may be disabled, in which case chunks are stored
// without embeddings and left for a later backfill.
func NewIndexer(store storage.ChunkStore, provider *embedding.Provider, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:    store,
		provider: provider,
		params: map[models.DocumentType]ChunkParams{
			models.DocumentTypeStyle:   ChunkParamsFor(models.DocumentTypeStyle),
			models.DocumentTypeContent: ChunkParamsFor(models.DocumentTypeContent),
		},
		async:      true,
		pending:    new(errgroup.Group),
		workers:    2,
		backlogCap: 64,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest validates, chunks, and stores a document, then embeds its chunks.
func (idx *Indexer) Ingest(ctx context.Context, in IngestInput) (*models.Document, error) {
	docType, err := models.ParseDocumentType(string(in.Type))
	if err != nil {
		return nil, err
	}
	text := Preprocess(in.Content)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	p := idx.params[docType]
	texts, err := ChunkText(text, p.Size, p.Overlap)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ErrNoChunks
	}

	chunks := make([]*models.DocumentChunk, len(texts))
	for i, t := range texts {
		chunks[i] = &models.DocumentChunk{
			ChunkIndex: i,
			Content:    t,
			Keywords:   ExtractKeywords(t),
		}
	}
	doc := &models.Document{
		Type:      docType,
		Filename:  in.Filename,
		UserID:    in.UserID,
		ProjectID: in.ProjectID,
		Active:    true,
		FileSize:  int64(len(in.Content)),
	}
	if err := idx.store.CreateDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	idx.logger.Debug("indexer document stored",
		zap.String("doc_id", doc.ID),
		zap.String("type", string(doc.Type)),
		zap.Int("chunks", len(chunks)))

	if idx.recall != nil {
		if err := idx.recall.Add(ctx, chunks); err != nil {
			idx.logger.Warn("recall index update failed", zap.String("doc_id", doc.ID), zap.Error(err))
		}
	}

	if idx.provider.Enabled() {
		if idx.async {
			idx.enqueue(embedJob{ctx: context.WithoutCancel(ctx), docID: doc.ID, chunks: chunks})
		} else {
			idx.embedChunks(ctx, doc.ID, chunks)
		}
	}
	return doc, nil
}

// enqueue hands a job to a background worker without blocking. It starts a worker when
// one is free, otherwise queues the job; with the backlog full the job is dropped.
func (idx *Indexer) enqueue(job embedJob) {
	idx.mu.Lock()
	switch {
	case idx.active < idx.workers:
		idx.active++
		idx.mu.Unlock()
		idx.pending.Go(func() error {
			idx.work(job)
			return nil
		})
		return
	case len(idx.backlog) < idx.backlogCap:
		idx.backlog = append(idx.backlog, job)
		idx.mu.Unlock()
		return
	}
	idx.mu.Unlock()
	idx.logger.Warn("embedding backlog full, chunks left for backfill",
		zap.String("doc_id", job.docID), zap.Int("chunks", len(job.chunks)))
}

// work embeds job, then keeps taking queued jobs until the backlog is empty.
func (idx *Indexer) work(job embedJob) {
	for {
		idx.embedChunks(job.ctx, job.docID, job.chunks)
		idx.mu.Lock()
		if len(idx.backlog) == 0 {
			idx.active--
			idx.mu.Unlock()
			return
		}
		job = idx.backlog[0]
		idx.backlog = idx.backlog[1:]
		idx.mu.Unlock()
	}
}

// embedChunks embeds chunks in provider-sized batches and stores each vector. Failures are logged and
// leave the chunk for backfill.
func (idx *Indexer) embedChunks(ctx context.Context, docID string, chunks []*models.DocumentChunk) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vecs := idx.provider.EmbedBatch(ctx, texts)
	stored := 0
	for i, vec := range vecs {
		if len(vec) == 0 {
			continue
		}
		if err := idx.store.SetEmbedding(ctx, chunks[i].ID, vec); err != nil {
			idx.logger.Warn("storing embedding failed", zap.String("chunk_id", chunks[i].ID), zap.Error(err))
			continue
		}
		chunks[i].Embedding = vec
		stored++
	}
	idx.logger.Debug("indexer chunks embedded", zap.String("doc_id", docID), zap.Int("embedded", stored), zap.Int("chunks", len(chunks)))
}

// Wait blocks until background embedding has finished.
func (idx *Indexer) Wait() error {
	return idx.pending.Wait()
}

// DeleteDocument removes a document and its chunks from the store and the recall index.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	chunks, err := idx.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if idx.recall != nil && len(chunks) > 0 {
		ids := make([]string, len(chunks))
		for i, ch := range chunks {
			ids[i] = ch.ID
		}
		if err := idx.recall.Remove(ctx, ids); err != nil {
			idx.logger.Warn("recall index removal failed", zap.String("doc_id", id), zap.Error(err))
		}
	}
	idx.logger.Debug("indexer document deleted", zap.String("doc_id", id))
	return nil
}

// RebuildRecall loads every stored chunk into the recall index. It returns the number indexed.
func (idx *Indexer) RebuildRecall(ctx context.Context) (int, error) {
	if idx.recall == nil {
		return 0, nil
	}
	chunks, err := idx.store.ListChunks(ctx, models.Scope{})
	if err != nil {
		return 0, fmt.Errorf("failed to list chunks: %w", err)
	}
	if err := idx.recall.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to rebuild recall index: %w", err)
	}
	return len(chunks), nil
}
