// Package server provides the HTTP API for ghostwriter retrieval.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/config"
	"github.com/hyperjump/ghostwriter/internal/indexer"
	"github.com/hyperjump/ghostwriter/internal/search"
	"github.com/hyperjump/ghostwriter/internal/storage"
)

// Server is the HTTP server for the retrieval API.
type Server struct {
	engine   *search.Engine
	indexer  *indexer.Indexer
	backfill *indexer.Backfill
	store    storage.ChunkStore
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	backfill *indexer.Backfill,
	store storage.ChunkStore,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:   engine,
		indexer:  idx,
		backfill: backfill,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	if s.config.Server.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.config.Server.MaxBodyBytes))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/search/keyword", s.handleKeywordSearch)
		r.Post("/search/vector", s.handleVectorSearch)

		r.Post("/documents", s.handleIngest)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/chunks", s.handleGetChunks)

		r.Post("/chunk", s.handleChunk)
		r.Post("/keywords", s.handleKeywords)
		r.Post("/embeddings/backfill", s.handleBackfill)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and waits for background embedding to finish.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.indexer != nil {
		if werr := s.indexer.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
