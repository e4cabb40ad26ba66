package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/capsulehq/capsuled/internal/domain/session"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

type createSessionRequest struct {
	Surface   string `json:"surface" binding:"required"`
	CapsuleID string `json:"capsuleId" binding:"required"`
}

// CreateSession registers a new idle session.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "surface and capsuleId are required"})
		return
	}

	sessionID, sess, err := h.sessions.Create(session.Surface(req.Surface), id.CapsuleID(req.CapsuleID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sessionID,
		"state":     sess.State(),
	})
}

// GetSession returns the current session snapshot.
func (h *Handlers) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

// StartSession begins a boot attempt.
func (h *Handlers) StartSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	runID, err := sess.Start()
	state := sess.State()
	h.recordTransition(state)

	switch {
	case errors.Is(err, session.ErrConcurrencyLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": err.Error(),
			"code":  "concurrency_limit",
		})
	case errors.Is(err, session.ErrDisposed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{
			"runId": runID,
			"state": state,
		})
	}
}

type readyRequest struct {
	RunID      string `json:"runId" binding:"required"`
	BootTimeMs int64  `json:"bootTimeMs"`
}

// SessionReady marks a boot attempt as ready. Stale run ids are accepted
// and ignored, matching late bridge events after a restart.
func (h *Handlers) SessionReady(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}

	sess.MarkReady(id.RunID(req.RunID), req.BootTimeMs)
	state := sess.State()
	h.recordTransition(state)
	c.JSON(http.StatusOK, state)
}

type errorRequest struct {
	RunID   string `json:"runId" binding:"required"`
	Message string `json:"message"`
}

// SessionError fails a boot attempt with a viewer-facing message.
func (h *Handlers) SessionError(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req errorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}

	message := req.Message
	if message == "" {
		message = "Capsule failed"
	}
	sess.MarkError(id.RunID(req.RunID), message)
	state := sess.State()
	h.recordTransition(state)
	c.JSON(http.StatusOK, state)
}

// PauseSession suspends the run budget.
func (h *Handlers) PauseSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	sess.Pause()
	c.JSON(http.StatusOK, sess.State())
}

// ResumeSession re-arms the run budget.
func (h *Handlers) ResumeSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	sess.Resume()
	c.JSON(http.StatusOK, sess.State())
}

// DeleteSession disposes and forgets a session.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := id.SessionID(c.Param("id"))
	if _, ok := h.sessions.Get(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	h.sessions.Remove(sessionID)
	c.Status(http.StatusNoContent)
}

func (h *Handlers) lookup(c *gin.Context) (*session.Session, bool) {
	sess, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (h *Handlers) recordTransition(state session.Snapshot) {
	monitoring.RecordSessionTransition(string(state.Surface), string(state.Status))
	monitoring.SetSlotsInUse(string(state.Surface), h.sessions.Pool().InUse(state.Surface))
}
