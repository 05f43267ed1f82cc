// Package api implements the HTTP surface this service exposes: an
// OpenSubtitles-compatible REST API for subtitle-capable clients, plus a
// small settings/browse/cache/status surface for the companion dashboard.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server is the HTTP adapter around a Handlers instance.
type Server struct {
	router   chi.Router
	server   *http.Server
	listener net.Listener
	port     int
	logger   zerolog.Logger
	started  time.Time
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         0,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		EnableCORS:   true,
	}
}

// NewServer builds the chi router, wires h's routes onto it, and binds a
// listener, but does not start serving — call Start for that.
func NewServer(config *Config, logger zerolog.Logger, h *Handlers) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	logger.Debug().Str("host", config.Host).Int("port", port).Msg("http server listening")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggerMiddleware(logger))
	if config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Api-Key"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	srv := &Server{router: r, listener: listener, port: port, logger: logger, started: time.Now()}

	r.Get("/health", srv.healthHandler)
	r.Get("/status", h.Status(srv.started))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/subtitles", h.SearchSubtitles)
		r.Post("/download", h.Download)
		r.Get("/download/{fileId}/{fileName}", h.DownloadNamed)
		r.Post("/upload", h.Upload)
		r.Get("/infos/languages", h.Languages)
	})

	r.Get("/settings", h.GetSettings)
	r.Post("/settings", h.UpdateSettings)
	r.Get("/api/settings", h.GetSettings)
	r.Post("/api/settings", h.UpdateSettings)
	r.Get("/api/settings/ollama/models", h.OllamaModels)

	r.Get("/browse", h.Browse)
	r.Post("/browse/analyze", h.BatchAnalyze)
	r.Post("/browse/start", h.BatchStart)
	r.Get("/browse/progress", h.BatchProgress)
	r.Post("/browse/cancel", h.BatchCancel)

	r.Get("/cache", h.ListCache)
	r.Delete("/cache", h.ClearCache)
	r.Delete("/cache/{fileId}", h.DeleteCache)

	r.Get("/language", h.Languages)

	srv.server = &http.Server{
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return srv, nil
}

// GetPort returns the port the server is listening on.
func (s *Server) GetPort() int { return s.port }

// Start begins serving requests in the background.
func (s *Server) Start() error {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("http server error")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.logger.Debug().Msg("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func loggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			logger.Trace().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("http request")
		})
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
