// Package bridge implements the structured message protocol connecting a
// sandboxed capsule frame and its host. The protocol is one-way-hardened:
// outbound sends are suppressed entirely when the trusted origin cannot be
// resolved, and inbound messages failing origin or source checks are dropped
// silently so the bridge never becomes a probing oracle.
package bridge

// SourceMarker tags every envelope emitted by the bridge. Consumers drop
// envelopes without it.
const SourceMarker = "capsule-bridge"

// Outbound event kinds.
const (
	EventReady = "ready"
	EventLog   = "log"
	EventError = "error"
	EventStats = "stats"
)

// Inbound command kinds.
const (
	CmdSetParams = "setParams"
	CmdPause     = "pause"
	CmdRestart   = "restart"
	CmdKill      = "kill"
)

// Envelope is the wire form of every bridge message.
type Envelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	Source  string                 `json:"source"`
}

// ReadyPayload announces successful boot.
type ReadyPayload struct {
	BootTimeMs   int64    `json:"bootTimeMs"`
	Capabilities []string `json:"capabilities"`
}

// StatsPayload carries periodic runtime statistics.
type StatsPayload struct {
	FPS         float64 `json:"fps"`
	MemoryBytes int64   `json:"memoryBytes"`
	BootTimeMs  int64   `json:"bootTimeMs"`
}

// Transport delivers envelopes across the isolation boundary.
type Transport interface {
	Send(env Envelope) error
}

// Handlers are the sandbox-side reactions to host commands. Nil fields fall
// back to safe defaults so an author's omission never leaves the sandbox
// unresponsive to host control.
type Handlers struct {
	SetParams func(params map[string]interface{}) error
	Pause     func(paused bool) error
	Restart   func() error
	Kill      func() error
}
