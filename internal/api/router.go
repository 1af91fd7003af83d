// Package api exposes the analysis service over HTTP and mounts the other
// HTTP-facing components (Telegram webhook, image files, live feed).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/edgard/foodlens/internal/config"
	"github.com/edgard/foodlens/internal/feed"
	"github.com/edgard/foodlens/internal/storage"
)

const (
	ServiceName  = "food-analysis-api"
	WebhookRoute = "/telegram/webhook"
)

// RouterDeps provides dependencies for the router. Downloader, Webhook,
// Images and Feed are optional and their routes are only mounted when set.
type RouterDeps struct {
	Logger         *slog.Logger
	Analyzer       Analyzer
	Downloader     FileDownloader
	Webhook        http.Handler
	Images         http.Handler
	Feed           http.Handler
	AllowedOrigins []string
	MaxUploadBytes int
	Version        string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps RouterDeps) *chi.Mux {
	log := deps.Logger.With("component", "http")
	h := &handlers{
		log:            log,
		analyzer:       deps.Analyzer,
		downloader:     deps.Downloader,
		maxUploadBytes: deps.MaxUploadBytes,
		version:        deps.Version,
	}

	r := chi.NewRouter()
	r.Use(Recovery(log))
	r.Use(RequestID)
	r.Use(Logging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Post("/analyze", h.analyzeUpload)
	r.Post("/analyze-base64", h.analyzeBase64)
	r.Post("/analyze-telegram", h.analyzeTelegram)

	r.Get("/history", h.history)
	r.Get("/statistics", h.statistics)
	r.Get("/analysis/{id}", h.getAnalysis)
	r.Delete("/analysis/{id}", h.deleteAnalysis)

	if deps.Webhook != nil {
		r.Method(http.MethodPost, WebhookRoute, deps.Webhook)
	}
	if deps.Images != nil {
		r.Handle(storage.ImagesRoute+"/*", deps.Images)
	}
	if deps.Feed != nil {
		r.Handle(feed.Route, deps.Feed)
	}

	return r
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	srv             *http.Server
	log             *slog.Logger
	shutdownTimeout time.Duration
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		log:             logger.With("component", "http_server"),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.log.Info("HTTP server stopped successfully")
	return nil
}
