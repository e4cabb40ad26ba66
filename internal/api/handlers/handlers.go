// Package handlers implements the HTTP API of the capsule engine.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/descriptor"
	"github.com/capsulehq/capsuled/internal/domain/session"
	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
	"github.com/capsulehq/capsuled/internal/sandbox"
)

// Handlers holds the API's collaborators.
type Handlers struct {
	cfg         *config.Config
	logger      *zap.Logger
	sessions    *session.Manager
	artifacts   *artifact.Store
	descriptors *descriptor.Service
	sandboxes   *sandbox.Pool
}

// New creates the handler set.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	sessions *session.Manager,
	artifacts *artifact.Store,
	descriptors *descriptor.Service,
	sandboxes *sandbox.Pool,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cfg:         cfg,
		logger:      logger,
		sessions:    sessions,
		artifacts:   artifacts,
		descriptors: descriptors,
		sandboxes:   sandboxes,
	}
}

// Register attaches all routes to the engine.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", monitoring.Handler())
	r.GET("/stats", h.Stats)

	v1 := r.Group("/v1")
	{
		v1.POST("/compile", h.Compile)
		v1.POST("/preview", h.Preview)

		v1.POST("/manifests/validate", h.ValidateManifest)
		v1.GET("/manifests/default", h.DefaultManifest)

		v1.POST("/capabilities/check", h.CheckCapabilities)

		v1.POST("/capsules", h.Publish)
		v1.GET("/artifacts/:id", h.GetArtifact)
		v1.GET("/artifacts/:id/descriptor", h.GetDescriptor)

		v1.POST("/sessions", h.CreateSession)
		v1.GET("/sessions/:id", h.GetSession)
		v1.POST("/sessions/:id/start", h.StartSession)
		v1.POST("/sessions/:id/ready", h.SessionReady)
		v1.POST("/sessions/:id/error", h.SessionError)
		v1.POST("/sessions/:id/pause", h.PauseSession)
		v1.POST("/sessions/:id/resume", h.ResumeSession)
		v1.DELETE("/sessions/:id", h.DeleteSession)
	}
}

// Health reports service liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "capsuled",
	})
}

// Stats returns a JSON snapshot of engine state for quick inspection.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(200, gin.H{
		"sessions":  h.sessions.Stats(),
		"artifacts": h.artifacts.Stats(),
		"sandboxes": h.sandboxes.Stats(),
		"metrics":   monitoring.Snapshot(),
	})
}
