package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/areajoin/internal/matcher"
	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/web/handlers"
	"github.com/areajoin/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *matcher.Metrics
	cache      *normalize.Cache
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
}

// NewServer creates a new web server instance
func NewServer(config *Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := matcher.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var cache *normalize.Cache
	if config.Matching.CacheSize > 0 {
		cache, err = normalize.NewCache(config.Matching.CacheSize)
		if err != nil {
			return nil, err
		}
	}

	// Create server instance
	server := &Server{
		config:   config,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		cache:    cache,
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.httpServer = &http.Server{
		Addr:         config.Addr(),
		Handler:      server.handler,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{
		MaxBodyBytes: s.config.Server.MaxBodyBytes,
		Workers:      s.config.Matching.Workers,
		Blocking:     s.config.Matching.Blocking,
		NullMarker:   s.config.Matching.NullMarker,
		Debug:        s.config.Matching.Debug,
	}

	apiHandler := &handlers.APIHandler{Config: handlerConfig, Logger: s.logger, Started: time.Now()}
	joinHandler := &handlers.JoinHandler{Config: handlerConfig, Logger: s.logger, Metrics: s.metrics, Cache: s.cache}
	exportHandler := &handlers.ExportHandler{Join: joinHandler}
	scoreHandler := &handlers.ScoreHandler{Cache: s.cache}

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/join", joinHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/export", exportHandler.ExportData).Methods(http.MethodPost)
	api.HandleFunc("/score", scoreHandler.Score).Methods(http.MethodGet)
	api.Use(middleware.Authentication(s.config.Auth.APIKey))

	// Health and metrics stay open
	s.router.HandleFunc("/api/health", apiHandler.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Apply middleware
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogging(s.logger))

	// CORS wraps the router so preflight requests never reach route matching
	s.handler = middleware.CORS()(s.router)
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
