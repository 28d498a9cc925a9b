// Package server provides the HTTP API for revsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/revsearch/internal/config"
	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/storage"
	"go.uber.org/zap"
)

// Retriever is the retrieval entry point the server exposes.
type Retriever interface {
	RetrieveAndOptionallyRerank(ctx context.Context, query string, topK int, rerank bool) (*models.SearchResponse, error)
	Size() int
	Dimensions() int
	RerankEnabled() bool
}

// Server is the HTTP server for the revsearch API.
type Server struct {
	retriever Retriever
	storage   storage.Storage
	config    *config.Config
	indexType string
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server. store may be nil; status then omits build information.
func NewServer(retriever Retriever, store storage.Storage, indexType string, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		retriever: retriever,
		storage:   store,
		config:    cfg,
		indexType: indexType,
		logger:    logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
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

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
