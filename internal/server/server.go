package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/llm"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/persistence"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/faisworld/fais-web-sub000/internal/visual"
)

// Route paths.
const (
	GenerateMediaPath   = "/api/admin/ai-tools/generate-media"
	GenerateArticlePath = "/api/admin/ai-tools/generate-article"
)

// MediaGenerator runs media generations.
type MediaGenerator interface {
	Generate(ctx context.Context, req visual.Request) (*visual.Result, error)
}

// Deps are the collaborators behind the routes. Media and Writer are nil
// when their credentials are missing; the routes then answer 500.
type Deps struct {
	Media      MediaGenerator
	Writer     llm.Writer
	Index      store.Index
	ContentDir string
	DB         persistence.Database // optional, reported by /health
	Auth       AdminAuth
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        zerolog.Logger
}

// New creates a new HTTP server instance
func New(cfg config.Server, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		log:    logger.Component("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/blog", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(securityHeaders)
		r.Get("/", s.handleListPosts)
		r.Get("/{slug}", s.handleGetPost)
	})

	// Generation routes poll upstream for minutes, so they carry no
	// request timeout of their own.
	s.router.Post(GenerateMediaPath, s.handleGenerateMedia)
	s.router.Head(GenerateMediaPath, s.handleMediaHead)
	s.router.Options(GenerateMediaPath, s.handleMediaOptions)
	s.router.Get(GenerateMediaPath, s.handleMediaDescribe)

	s.router.With(s.requireAdmin).Post(GenerateArticlePath, s.handleGenerateArticle)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Bool("media_enabled", s.deps.Media != nil).
		Bool("writer_enabled", s.deps.Writer != nil).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
