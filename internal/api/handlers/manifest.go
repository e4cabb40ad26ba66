package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/capsulehq/capsuled/internal/domain/manifest"
)

// ValidateManifest parses and validates a capsule manifest. Accepts JSON by
// default and YAML when the content type says so. Validation findings come
// back with 200; only an unparseable body is a request error.
func (h *Handlers) ValidateManifest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	var m *manifest.Manifest
	if isYAML(c.ContentType()) {
		m, err = manifest.ParseYAML(body)
	} else {
		m, err = manifest.ParseJSON(body)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed manifest: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, manifest.Validate(m))
}

// DefaultManifest returns a scaffold manifest for a runner.
func (h *Handlers) DefaultManifest(c *gin.Context) {
	runner := manifest.Runner(c.DefaultQuery("runner", string(manifest.RunnerClientStatic)))
	if !runner.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown runner: " + string(runner)})
		return
	}
	c.JSON(http.StatusOK, manifest.CreateDefault(runner))
}

func isYAML(contentType string) bool {
	return strings.Contains(contentType, "yaml") || strings.Contains(contentType, "yml")
}
