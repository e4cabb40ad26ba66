package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/compiler"
	"github.com/capsulehq/capsuled/internal/domain/manifest"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

type publishRequest struct {
	CapsuleID string          `json:"capsuleId"`
	Manifest  json.RawMessage `json:"manifest"`
	HTML      string          `json:"html"`
}

// Publish validates a manifest, compiles the bundle, stores the artifact,
// and builds its launch descriptor.
func (h *Handlers) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := manifest.ParseJSON(req.Manifest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed manifest: " + err.Error()})
		return
	}
	validation := manifest.Validate(m)
	if !validation.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "manifest rejected",
			"errors": validation.Errors,
		})
		return
	}

	start := time.Now()
	compiled := compiler.Compile(req.HTML, compiler.Options{
		MaxBytes: h.cfg.Compiler.MaxBytes,
		BaseHref: h.cfg.Sandbox.BaseOrigin,
	})
	monitoring.RecordCompile(compiled.OK, time.Since(start))
	if !compiled.OK {
		c.JSON(http.StatusUnprocessableEntity, compiled)
		return
	}

	meta, err := h.artifacts.Put([]byte(compiled.HTML))
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, artifact.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	capsuleID := id.CapsuleID(req.CapsuleID)
	if capsuleID == "" {
		capsuleID = id.NewCapsuleID()
	}

	desc, err := h.descriptors.Build(capsuleID, m, meta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	verified := false
	if h.cfg.Storage.VerifyOnUpload {
		if err := h.descriptors.Verify(c.Request.Context(), desc); err != nil {
			h.logger.Warn("bundle verification failed",
				zap.String("bundle_key", desc.BundleKey),
				zap.Error(err))
		} else {
			verified = true
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"capsuleId":  capsuleID,
		"artifact":   meta,
		"descriptor": desc,
		"warnings":   append(compiled.Warnings, warningMessages(validation.Warnings)...),
		"verified":   verified,
	})
}

// GetArtifact serves the stored compiled bundle.
func (h *Handlers) GetArtifact(c *gin.Context) {
	data, meta, err := h.artifacts.Get(id.ArtifactID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}
	c.Header("X-Capsule-Digest", meta.Digest)
	c.Data(http.StatusOK, meta.ContentType, data)
}

// GetDescriptor returns the cached launch descriptor for an artifact.
func (h *Handlers) GetDescriptor(c *gin.Context) {
	desc, ok := h.descriptors.Get(id.ArtifactID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "descriptor not found"})
		return
	}
	c.JSON(http.StatusOK, desc)
}

func warningMessages(issues []manifest.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Path+": "+issue.Message)
	}
	return out
}
