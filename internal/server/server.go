// Package server wires the extraction pipeline behind an HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/config"
	"github.com/labsight/labsight/internal/fetch"
	"github.com/labsight/labsight/internal/pipeline"
	"github.com/labsight/labsight/internal/plan"
	"github.com/labsight/labsight/internal/providers"
	"github.com/labsight/labsight/internal/reconcile"
	"github.com/labsight/labsight/internal/render"
	"github.com/labsight/labsight/internal/server/endpoints"
	"github.com/labsight/labsight/internal/svcctx"
)

// Server is the Labsight HTTP server. Services are rebuilt from config
// on hot reload; in-flight requests keep the snapshot they started with.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	services *svcctx.Services
	running  bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("server requires a config manager")
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	if err := s.rebuild(cfg.ConfigManager.Get()); err != nil {
		return nil, err
	}

	// Rebuild services when the config file changes
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		if err := s.rebuild(c); err != nil {
			s.logger.Error("config reload failed, keeping previous services", "error", err)
			return
		}
		s.logger.Info("services rebuilt from config")
	})

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireProvider)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// Pipeline responses can take minutes on large documents.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// rebuild constructs the service graph from a config snapshot.
func (s *Server) rebuild(c *config.Config) error {
	services := &svcctx.Services{
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
	}

	apiKey := config.ResolveEnvVars(c.Provider.APIKey)
	if apiKey == "" {
		// The server still starts so /health and /status work; pipeline
		// endpoints return 503 until a key is configured.
		s.logger.Warn("no provider API key configured; extraction endpoints disabled")
		s.setServices(services)
		return nil
	}

	vision := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:     apiKey,
		Model:      c.Provider.Model,
		BaseURL:    c.Provider.BaseURL,
		Timeout:    time.Duration(c.Provider.TimeoutSeconds) * time.Second,
		MaxRetries: c.Provider.MaxRetries,
		RateLimit:  c.Provider.RateLimitRPM,
	})

	acquirer := fetch.New(fetch.Config{
		MaxBytes: int64(c.Pipeline.MaxDocumentMB) << 20,
		Timeout:  time.Duration(c.Pipeline.FetchTimeoutSeconds) * time.Second,
		Logger:   s.logger,
	})

	renderer := render.New(render.Config{
		MaxPages:    c.Pipeline.MaxPages,
		DPI:         c.Pipeline.RenderDPI,
		MaxImageDim: c.Pipeline.MaxImageDim,
		Workers:     c.Pipeline.PageConcurrency,
		Logger:      s.logger,
	})

	orchestrator, err := pipeline.New(pipeline.Config{
		Acquirer:        acquirer,
		Renderer:        renderer,
		Vision:          vision,
		Aliases:         reconcile.NewAliasTable(c.Aliases),
		PageConcurrency: c.Pipeline.PageConcurrency,
		AcquireAttempts: c.Pipeline.AcquireAttempts,
		Deadline:        time.Duration(c.Pipeline.DeadlineSeconds) * time.Second,
		ClassifyReports: c.Pipeline.ClassifyReports,
		Logger:          s.logger,
	})
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	services.Vision = vision
	services.Pipeline = orchestrator
	services.Planner = plan.New(vision, s.logger)

	s.setServices(services)
	return nil
}

func (s *Server) setServices(services *svcctx.Services) {
	s.mu.Lock()
	s.services = services
	s.mu.Unlock()
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// Start starts the HTTP server. It blocks until the context is
// cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root HTTP handler (tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with the
// current services snapshot.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.currentServices(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireProvider is middleware that gates endpoints needing a
// configured vision provider. Returns 503 until one is available.
func (s *Server) requireProvider(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := s.currentServices()
		if services == nil || services.Vision == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"kind":"not_ready","message":"no vision provider configured"}}`))
			return
		}
		next(w, r)
	}
}
