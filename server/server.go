package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/191-iota/textreflex/analysis"
	"github.com/191-iota/textreflex/config"
	"github.com/191-iota/textreflex/provider"
	"github.com/191-iota/textreflex/server/handlers"
	"github.com/191-iota/textreflex/server/metrics"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	shutdown   config.ServerConfig
	watcher    config.Watcher
}

// New builds a fully wired server from config: metrics registry, token
// counter, prompt composer, upstream client behind the circuit
// breaker, analyzer, handler, and router.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	m := metrics.NewMetrics()

	// Token counting is best effort: the encoding download can fail
	// offline, and the character bound already guards the request size.
	var counter *analysis.TokenCounter
	if cfg.Provider.MaxContextTokens > 0 {
		var err error
		counter, err = analysis.NewTokenCounter()
		if err != nil {
			logger.Warn("token counter unavailable, using character bound only", zap.Error(err))
			counter = nil
		}
	}

	composer, err := analysis.NewComposer(cfg.Analysis.MaxTextChars, cfg.Provider.MaxContextTokens, counter, logger)
	if err != nil {
		return nil, fmt.Errorf("create composer: %w", err)
	}

	var client provider.Client = provider.NewPollinations(cfg.Provider, logger)
	if cfg.Provider.Breaker.Enabled {
		client = provider.NewBreaker(client, cfg.Provider.Breaker, logger, m.Registry())
	}

	analyzer := analysis.NewAnalyzer(composer, client, cfg.Provider, logger)
	analyze := handlers.NewAnalyzeHandler(analyzer, logger, m)
	router := NewRouter(analyze, m, cfg, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
		logger:   logger,
		shutdown: cfg.Server,
	}, nil
}

// NewFromFile loads config from path and builds the server, keeping a
// watcher on the file. Server and provider settings need a restart;
// reloads are logged so operators can tell a change was picked up.
func NewFromFile(path string, logger *zap.Logger) (*Server, error) {
	watcher, err := config.NewConfigWatcher(path, logger)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	srv, err := New(watcher.GetCurrentConfig(), logger)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	srv.watcher = watcher

	go func() {
		for range watcher.Subscribe() {
			logger.Info("config file reloaded; restart to apply server and provider changes")
		}
	}()

	return srv, nil
}

// Start starts the server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if s.watcher != nil {
			s.watcher.Close()
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
