// Package server provides the HTTP server and routing for RiftScope.
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

	analyticshandlers "github.com/riftscope/riftscope/internal/analytics/handlers"
	"github.com/riftscope/riftscope/internal/database"
	matchstorehandlers "github.com/riftscope/riftscope/internal/matchstore/handlers"
	profilehandlers "github.com/riftscope/riftscope/internal/profile/handlers"
	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
)

// Config holds server configuration.
type Config struct {
	Log        zerolog.Logger
	Port       int
	DevMode    bool
	MatchesDB  *database.DB
	ClientDB   *database.DB
	Cache      *rescache.Cache
	Limiter    *ratelimit.Limiter
	Analytics  *analyticshandlers.Handler
	MatchStore *matchstorehandlers.Handler
	Profile    *profilehandlers.Handler
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
	system *SystemHandlers
}

// New creates a new HTTP server with all routes registered.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		system: NewSystemHandlers(cfg.Log, cfg.MatchesDB, cfg.ClientDB, cfg.Cache, cfg.Limiter),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.cfg.Analytics.RegisterRoutes(s.router)
	if s.cfg.MatchStore != nil {
		s.cfg.MatchStore.RegisterRoutes(s.router)
	}
	if s.cfg.Profile != nil {
		s.cfg.Profile.RegisterRoutes(s.router)
	}

	s.router.Get("/api/system/health", s.system.HandleHealth)
	s.router.Get("/api/system/stats", s.system.HandleStats)
}

// Router exposes the mux, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
