package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/capability"
	"github.com/capsulehq/capsuled/internal/sandbox"
)

type capabilityCheckRequest struct {
	Required []string `json:"required"`
}

// CheckCapabilities runs the capability probe inside a pooled sandbox VM and
// returns the resulting report, merged with any guard hardening gaps. When
// the caller names required capabilities, the response also says whether the
// sandbox satisfies them. Advisory: enforcement lives in the guard itself.
func (h *Handlers) CheckCapabilities(c *gin.Context) {
	var req capabilityCheckRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	required := make([]capability.Capability, 0, len(req.Required))
	for _, name := range req.Required {
		capName := capability.Capability(name)
		if !capName.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown capability: " + name})
			return
		}
		required = append(required, capName)
	}

	rt, err := h.sandboxes.Acquire(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sandbox available"})
		return
	}
	defer h.sandboxes.Release(rt)

	result, err := rt.Execute(c.Request.Context(), capability.ProbeScript())
	if err != nil || result.Error != nil {
		h.logger.Error("capability probe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "capability probe failed"})
		return
	}

	raw, ok := result.Value.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "capability probe returned no report"})
		return
	}
	report, err := capability.ParseReport([]byte(raw))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "capability report unreadable"})
		return
	}
	report.Warnings = append(report.Warnings, sandbox.Warnings(rt.Hardenings())...)

	response := gin.H{
		"report":    report,
		"satisfied": true,
	}
	if len(required) > 0 {
		if err := capability.ValidateRequired(report, required); err != nil {
			response["satisfied"] = false
			response["missing"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, response)
}
