package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"todoapi/internal/api"
	"todoapi/internal/cache"
	"todoapi/internal/config"
	"todoapi/internal/metrics"
	"todoapi/internal/ws"
)

// Repositories holds the persistence the routes are served from
type Repositories struct {
	Activities api.ActivityStore
	Todos      api.TodoStore
}

// Server represents one worker's HTTP surface
type Server struct {
	cfg           *config.Config
	store         cache.Store
	metrics       *metrics.Metrics
	handler       http.Handler
	wsHandler     http.Handler
	httpServer    *http.Server
	wsServer      *http.Server
	metricsServer *metrics.Server
	logger        zerolog.Logger
}

// New creates a new Server. metricsAddr may be empty to skip serving /metrics.
func New(cfg *config.Config, repos Repositories, metricsAddr string, logger zerolog.Logger) (*Server, error) {
	var store cache.Store
	if cfg.IsCacheEnabled() {
		var err error
		store, err = cache.NewMemoryStore(cfg.Cache.Size, cfg.Cache.GetSweepIntervalDuration())
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}

		logger.Info().
			Int("size", cfg.Cache.Size).
			Int("ttl", cfg.Cache.TTL).
			Dur("sweepInterval", cfg.Cache.GetSweepIntervalDuration()).
			Msg("cache enabled")
	} else {
		store = cache.NewNoopStore()
		logger.Info().Msg("cache disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(metrics.Namespace, registry)

	h := api.NewHandler(repos.Activities, repos.Todos, cfg.MaxBodySize, logger)
	cacheMW := cache.NewMiddleware(store, cfg.Cache.GetTTLDuration(), m.CacheObserver(), logger)
	handler := api.CORS(cacheMW.Wrap(m.Middleware(api.NewRouter(h))))

	s := &Server{
		cfg:       cfg,
		store:     store,
		metrics:   m,
		handler:   handler,
		wsHandler: ws.NewHandler(handler, cfg.MaxBodySize, logger),
		logger:    logger,
	}
	if metricsAddr != "" {
		s.metricsServer = metrics.NewServer(metricsAddr, registry, logger)
	}
	return s, nil
}

// Handler returns the HTTP handler with every hook installed
func (s *Server) Handler() http.Handler {
	return s.handler
}

// WSHandler returns the WebSocket tunnel handler
func (s *Server) WSHandler() http.Handler {
	return s.wsHandler
}

// Start serves on the given listeners. wsLn may be nil.
func (s *Server) Start(httpLn, wsLn net.Listener) error {
	if httpLn == nil {
		return errors.New("http listener is required")
	}

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", httpLn.Addr().String()).
			Msg("starting HTTP server")
		if err := s.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if wsLn != nil {
		s.wsServer = &http.Server{
			Handler:     s.wsHandler,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		}

		go func() {
			s.logger.Info().
				Str("addr", wsLn.Addr().String()).
				Msg("starting WebSocket server")
			if err := s.wsServer.Serve(wsLn); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("WebSocket server error")
			}
		}()
	}

	if s.metricsServer != nil {
		s.metricsServer.StartAsync()
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	var httpErr, wsErr, metricsErr error

	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}
	if s.wsServer != nil {
		wsErr = s.wsServer.Shutdown(ctx)
	}
	if s.metricsServer != nil {
		metricsErr = s.metricsServer.Stop(ctx)
	}

	if s.store != nil {
		s.store.Close()
	}

	if httpErr != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", httpErr)
	}
	if wsErr != nil {
		return fmt.Errorf("WebSocket server shutdown error: %w", wsErr)
	}
	if metricsErr != nil {
		return fmt.Errorf("metrics server shutdown error: %w", metricsErr)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
