package bridge

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bridge is the sandbox side of the protocol: it emits typed events to the
// trusted origin and dispatches inbound host commands to handlers.
type Bridge struct {
	mu         sync.Mutex
	trusted    string
	suppressed bool
	readySent  bool
	transport  Transport
	handlers   Handlers
	logger     *zap.Logger
}

// New creates a bridge addressing the given trusted origin. An empty origin
// suppresses all outbound sends and logs a single warning.
func New(transport Transport, trustedOrigin string, handlers Handlers, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bridge{
		trusted:   trustedOrigin,
		transport: transport,
		handlers:  handlers,
		logger:    logger,
	}

	if trustedOrigin == "" {
		b.suppressed = true
		logger.Warn("bridge could not resolve a trusted parent origin; all outbound sends suppressed")
	}

	return b
}

// TrustedOrigin returns the origin outbound envelopes are addressed to.
func (b *Bridge) TrustedOrigin() string {
	return b.trusted
}

// Ready announces successful boot. Idempotent: a second call is a no-op.
func (b *Bridge) Ready(bootTimeMs int64, capabilities []string) error {
	b.mu.Lock()
	if b.readySent {
		b.mu.Unlock()
		return nil
	}
	b.readySent = true
	b.mu.Unlock()

	if capabilities == nil {
		capabilities = []string{}
	}
	return b.send(Envelope{
		Type: EventReady,
		Payload: map[string]interface{}{
			"bootTimeMs":   bootTimeMs,
			"capabilities": capabilities,
		},
		Source: SourceMarker,
	})
}

// Log emits a log event with optional extra fields.
func (b *Bridge) Log(level, message string, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"level":     level,
		"message":   message,
		"timestamp": time.Now().UnixMilli(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return b.send(Envelope{Type: EventLog, Payload: payload, Source: SourceMarker})
}

// Error emits an error event with optional extra fields.
func (b *Bridge) Error(message string, extra map[string]interface{}) error {
	payload := map[string]interface{}{"message": message}
	for k, v := range extra {
		payload[k] = v
	}
	return b.send(Envelope{Type: EventError, Payload: payload, Source: SourceMarker})
}

// Stats emits a runtime statistics event.
func (b *Bridge) Stats(stats StatsPayload) error {
	return b.send(Envelope{
		Type: EventStats,
		Payload: map[string]interface{}{
			"fps":         stats.FPS,
			"memoryBytes": stats.MemoryBytes,
			"bootTimeMs":  stats.BootTimeMs,
		},
		Source: SourceMarker,
	})
}

func (b *Bridge) send(env Envelope) error {
	b.mu.Lock()
	suppressed := b.suppressed
	b.mu.Unlock()

	if suppressed {
		return nil
	}
	return b.transport.Send(env)
}

// Dispatch handles one inbound host command. Messages are checked against
// the trusted origin and that they come from the expected parent window;
// anything else is silently dropped. A handler fault is caught and reported
// as an error event rather than propagated, so one bad command cannot kill
// the message loop.
func (b *Bridge) Dispatch(env Envelope, origin string, fromExpectedSource bool) {
	if b.trusted == "" || origin != b.trusted || !fromExpectedSource {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.Error(fmt.Sprintf("command handler panicked: %v", r), map[string]interface{}{"command": env.Type})
		}
	}()

	var err error
	switch env.Type {
	case CmdSetParams:
		err = b.handleSetParams(env.Payload)
	case CmdPause:
		err = b.handlePause(env.Payload)
	case CmdRestart:
		err = b.handleRestart()
	case CmdKill:
		err = b.handleKill()
	default:
		// Unknown command: drop, not an error. Forward compatibility.
		return
	}

	if err != nil {
		b.Error(fmt.Sprintf("command %s failed: %v", env.Type, err), map[string]interface{}{"command": env.Type})
	}
}

func (b *Bridge) handleSetParams(payload map[string]interface{}) error {
	if b.handlers.SetParams == nil {
		return nil
	}
	params, _ := payload["params"].(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}
	return b.handlers.SetParams(params)
}

func (b *Bridge) handlePause(payload map[string]interface{}) error {
	if b.handlers.Pause == nil {
		return nil
	}
	paused, ok := payload["paused"].(bool)
	if !ok {
		paused = true
	}
	return b.handlers.Pause(paused)
}

func (b *Bridge) handleRestart() error {
	if b.handlers.Restart == nil {
		// Default: an unhandled restart reloads the whole sandbox rather
		// than leaving it unresponsive.
		b.logger.Info("restart command unhandled by capsule, full reload")
		return nil
	}
	return b.handlers.Restart()
}

func (b *Bridge) handleKill() error {
	if b.handlers.Kill == nil {
		return nil
	}
	return b.handlers.Kill()
}
