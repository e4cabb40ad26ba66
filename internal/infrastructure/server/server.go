// Package server wires the capsule engine together and runs the HTTP
// server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/api/handlers"
	"github.com/capsulehq/capsuled/internal/api/middleware"
	"github.com/capsulehq/capsuled/internal/api/ws"
	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/descriptor"
	"github.com/capsulehq/capsuled/internal/domain/session"
	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/infrastructure/logging"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
	"github.com/capsulehq/capsuled/internal/sandbox"
)

// Server is the assembled capsule engine.
type Server struct {
	httpServer *http.Server
	sessions   *session.Manager
	hub        *ws.Hub
	sandboxes  *sandbox.Pool
	logger     *logging.Logger
}

// New builds all components and the router.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if cfg.Logging.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := artifact.NewStore(cfg.Storage.MaxBundleBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Sandbox.ExecTimeout
	sandboxes, err := sandbox.NewPool(sandboxCfg, cfg.Sandbox.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox pool: %w", err)
	}

	zl := logger.Logger
	sessions := session.NewManager(cfg, zl)
	descriptors := descriptor.NewService(cfg.Storage, zl)
	hub := ws.NewHub(cfg.Sandbox.FrameOrigin, sessions, zl)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(zl))
	router.Use(monitoring.Middleware())
	router.Use(middleware.CORS(nil))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}

	handlers.New(cfg, zl, sessions, store, descriptors, sandboxes).Register(router)
	hub.Register(router)

	srv := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sessions:  sessions,
		hub:       hub,
		sandboxes: sandboxes,
		logger:    logger,
	}
	return srv, nil
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("capsule engine listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains connections and disposes live sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := s.sandboxes.Close(); err != nil {
		return fmt.Errorf("sandbox pool close failed: %w", err)
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
