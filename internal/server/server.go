// Package server provides the HTTP API for querying a built index.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/pipeline"
)

// Server serves nearest-neighbor queries over HTTP against an index built by
// the pipeline. The index only grows (watcher appends); search never mutates
// it, so handlers share it freely.
type Server struct {
	id     string
	pipe   *pipeline.Pipeline
	cfg    *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server around a pipeline whose index has been built.
func NewServer(pipe *pipeline.Pipeline, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		id:     uuid.NewString(),
		pipe:   pipe,
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
