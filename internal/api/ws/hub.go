// Package ws is the host-side bridge transport: each sandboxed frame holds
// one WebSocket keyed by its run id, carrying bridge envelopes both ways.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/domain/bridge"
	"github.com/capsulehq/capsuled/internal/domain/session"
	"github.com/capsulehq/capsuled/internal/infrastructure/monitoring"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

// maxEnvelopeBytes bounds a single bridge message.
const maxEnvelopeBytes = 64 * 1024

// Hub tracks live bridge connections keyed by run id.
type Hub struct {
	mu       sync.RWMutex
	conns    map[id.RunID]*conn
	upgrader websocket.Upgrader
	sessions *session.Manager
	logger   *zap.Logger
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) send(env bridge.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

// NewHub creates a hub accepting frames served from frameOrigin only.
func NewHub(frameOrigin string, sessions *session.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns: make(map[id.RunID]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return r.Header.Get("Origin") == frameOrigin
			},
		},
		sessions: sessions,
		logger:   logger,
	}
}

// Register attaches the bridge endpoint.
func (h *Hub) Register(r *gin.Engine) {
	r.GET("/v1/sessions/:id/bridge", h.Handle)
}

// Handle upgrades a frame's connection and pumps its envelopes into the
// session until the socket closes.
func (h *Hub) Handle(c *gin.Context) {
	sess, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	runID := id.RunID(c.Query("runId"))
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the response (403 on origin mismatch).
		h.logger.Warn("bridge upgrade rejected", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxEnvelopeBytes)

	cn := &conn{ws: ws}
	h.mu.Lock()
	h.conns[runID] = cn
	h.mu.Unlock()

	h.logger.Info("bridge connected", zap.String("run_id", runID.String()))
	h.readLoop(sess, runID, ws)

	h.mu.Lock()
	if h.conns[runID] == cn {
		delete(h.conns, runID)
	}
	h.mu.Unlock()
	ws.Close()
}

func (h *Hub) readLoop(sess *session.Session, runID id.RunID, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var env bridge.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Source != bridge.SourceMarker {
			monitoring.RecordBridgeDropped()
			continue
		}
		monitoring.RecordBridgeMessage(env.Type, "inbound")
		h.dispatch(sess, runID, env)
	}
}

func (h *Hub) dispatch(sess *session.Session, runID id.RunID, env bridge.Envelope) {
	switch env.Type {
	case bridge.EventReady:
		sess.MarkReady(runID, payloadInt(env.Payload, "bootTimeMs"))
	case bridge.EventError:
		message, _ := env.Payload["message"].(string)
		if message == "" {
			message = "Capsule failed"
		}
		sess.MarkError(runID, message)
	case bridge.EventLog:
		level, _ := env.Payload["level"].(string)
		message, _ := env.Payload["message"].(string)
		h.logger.Info("capsule log",
			zap.String("run_id", runID.String()),
			zap.String("level", level),
			zap.String("message", message))
	case bridge.EventStats:
		// Stats are observed via metrics only; no session state change.
	default:
		monitoring.RecordBridgeDropped()
	}
}

func payloadInt(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Send delivers a host command to the frame for runID. Returns false when no
// bridge is connected for that run.
func (h *Hub) Send(runID id.RunID, env bridge.Envelope) bool {
	h.mu.RLock()
	cn, ok := h.conns[runID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := cn.send(env); err != nil {
		h.logger.Warn("bridge send failed",
			zap.String("run_id", runID.String()),
			zap.Error(err))
		return false
	}
	monitoring.RecordBridgeMessage(env.Type, "outbound")
	return true
}

// Connected reports whether a bridge is attached for runID.
func (h *Hub) Connected(runID id.RunID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[runID]
	return ok
}
