package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	// registers the OpenAPI document served at /docs/doc.json
	_ "github.com/custodia-labs/sercha-edu/docs"

	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// ReadinessChecker reports the health of the backing services
type ReadinessChecker interface {
	Ready(ctx context.Context) (map[string]string, bool)
}

// Services bundles the core services exposed over HTTP
type Services struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Grammar   driving.GrammarService
	Answer    driving.AnswerService
	Questions driving.QuestionService
	Tasks     driving.TaskService
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	uploadDir  string
	maxUpload  int64
	logger     *slog.Logger

	// Services
	ingestion driving.IngestionService
	retrieval driving.RetrievalService
	grammar   driving.GrammarService
	answer    driving.AnswerService
	questions driving.QuestionService
	tasks     driving.TaskService

	// Infrastructure
	auth  driven.AuthAdapter // nil disables authentication
	ready ReadinessChecker   // can be nil
	cors  []string
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 64 << 20,
		CORSOrigins:    []string{"*"},
	}
}

// NewServer creates a new HTTP server. auth and ready may be nil.
func NewServer(cfg Config, services Services, auth driven.AuthAdapter, ready ReadinessChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:    http.NewServeMux(),
		version:   cfg.Version,
		uploadDir: cfg.UploadDir,
		maxUpload: cfg.MaxUploadBytes,
		logger:    logger,
		ingestion: services.Ingestion,
		retrieval: services.Retrieval,
		grammar:   services.Grammar,
		answer:    services.Answer,
		questions: services.Questions,
		tasks:     services.Tasks,
		auth:      auth,
		ready:     ready,
		cors:      cfg.CORSOrigins,
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.auth)
	member := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /docs/doc.json", s.handleDocs)

	// Ingestion (admin-only)
	s.router.Handle("POST /api/v1/documents", admin(s.handleUploadDocument))
	s.router.Handle("GET /api/v1/tasks/{id}", admin(s.handleGetTask))

	// Retrieval
	s.router.Handle("GET /api/v1/subjects", member(s.handleListSubjects))
	s.router.Handle("GET /api/v1/subjects/{subject}/titles", member(s.handleListTitles))
	s.router.Handle("GET /api/v1/subjects/{subject}/documents/{title}", member(s.handleFetchDocument))
	s.router.Handle("POST /api/v1/search", member(s.handleSearch))

	// Learning
	s.router.Handle("POST /api/v1/grammar/check", member(s.handleGrammarCheck))
	s.router.Handle("POST /api/v1/answer/analyze", member(s.handleAnalyzeAnswer))
	s.router.Handle("POST /api/v1/generate/questions", member(s.handleGenerateQuestions))
}

// Handler returns the router wrapped in the standard middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.cors).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
