package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/indexer"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("type", string(req.Type)), zap.Int("top_k", req.TopK))
	response, err := s.engine.Search(r.Context(), &req)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	response, err := s.engine.KeywordSearch(r.Context(), &req)
	if err != nil {
		s.fail(w, "keyword search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	response, err := s.engine.VectorSearch(r.Context(), &req)
	if err != nil {
		s.fail(w, "vector search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var input indexer.IngestInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("ingest request", zap.String("filename", input.Filename), zap.String("type", string(input.Type)), zap.Int("bytes", len(input.Content)))
	doc, err := s.indexer.Ingest(r.Context(), input)
	if err != nil {
		s.fail(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := models.Scope{
		Type:       models.DocumentType(q.Get("type")),
		ProjectIDs: splitList(q.Get("project_ids")),
		ActiveOnly: q.Get("active") == "true",
	}
	if scope.Type != "" {
		if _, err := models.ParseDocumentType(string(scope.Type)); err != nil {
			s.fail(w, "list documents failed", err)
			return
		}
	}
	docs, err := s.store.ListDocuments(r.Context(), scope)
	if err != nil {
		s.fail(w, "list documents failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	ids := splitList(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		s.respondError(w, http.StatusBadRequest, "ids is required")
		return
	}
	chunks, err := s.store.GetChunksByIDs(r.Context(), ids)
	if err != nil {
		s.fail(w, "get chunks failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks})
}

type chunkRequest struct {
	Text      string              `json:"text"`
	Type      models.DocumentType `json:"type,omitempty"`
	ChunkSize int                 `json:"chunk_size,omitempty"`
	Overlap   *int                `json:"overlap,omitempty"`
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !s.decode(w, r, &req) {
		return
	}
	params := indexer.ChunkParamsFor(req.Type)
	if req.ChunkSize > 0 {
		params.Size = req.ChunkSize
	}
	if req.Overlap != nil {
		params.Overlap = *req.Overlap
	}
	chunks, err := indexer.ChunkText(indexer.Preprocess(req.Text), params.Size, params.Overlap)
	if err != nil {
		s.fail(w, "chunking failed", err)
		return
	}
	if chunks == nil {
		chunks = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks, "params": params})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"keywords": indexer.ExtractKeywords(req.Text)})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if s.backfill == nil {
		s.respondError(w, http.StatusServiceUnavailable, indexer.ErrNoEmbedder.Error())
		return
	}
	result, err := s.backfill.Run(r.Context())
	if err != nil {
		s.fail(w, "backfill failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunks, err := s.store.CountChunks(ctx)
	if err != nil {
		s.fail(w, "health: count chunks failed", err)
		return
	}
	embedded, err := s.store.CountEmbeddedChunks(ctx)
	if err != nil {
		s.fail(w, "health: count embedded chunks failed", err)
		return
	}
	resp := map[string]interface{}{
		"status":          "ok",
		"chunks":          chunks,
		"embedded_chunks": embedded,
		"storage_driver":  s.config.Storage.Driver,
		"embedding":       s.config.Embedding.Provider,
	}
	if s.config.Storage.Driver == "sqlite" {
		resp["sqlite_build"] = storage.DriverMode()
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.RecallIndexPath)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// fail logs err and writes it with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

// decode reads a JSON body into v and answers 400, or 413 past the body limit, when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	s.respondError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrInvalidDocumentType):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, indexer.ErrNoEmbedder):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
