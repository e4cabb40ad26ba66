package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/artifact"
	"github.com/capsulehq/capsuled/internal/domain/compiler"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
)

type compileRequest struct {
	HTML string `json:"html"`
	// MaxBytes is the caller's plan-specific ceiling. Zero falls back to the
	// configured baseline.
	MaxBytes int `json:"maxBytes"`
}

type compileResponse struct {
	compiler.Result
	Artifact *artifact.Meta `json:"artifact,omitempty"`
}

// Compile runs the sanitizing compile pipeline on submitted HTML and stores
// the artifact on success.
func (h *Handlers) Compile(c *gin.Context) {
	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ceiling := h.cfg.Compiler.MaxBytes
	if req.MaxBytes > 0 {
		ceiling = req.MaxBytes
	}

	start := time.Now()
	result := compiler.Compile(req.HTML, compiler.Options{
		MaxBytes: ceiling,
		BaseHref: h.cfg.Sandbox.BaseOrigin,
	})
	monitoring.RecordCompile(result.OK, time.Since(start))

	if !result.OK {
		h.logger.Info("compile rejected",
			zap.String("code", result.ErrorCode),
			zap.Int("input_bytes", len(req.HTML)))
		c.JSON(http.StatusUnprocessableEntity, compileResponse{Result: result})
		return
	}

	meta, err := h.artifacts.Put([]byte(result.HTML))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, compileResponse{Result: result, Artifact: &meta})
}

type previewRequest struct {
	HTML string `json:"html"`
}

// Preview extracts a text-only feed card summary from compiled HTML.
func (h *Handlers) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, compiler.Preview(req.HTML))
}
