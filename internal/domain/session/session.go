// Package session implements the runtime lifecycle of a capsule: the
// idle -> loading -> ready|error state machine, per-surface boot and run
// budgets, and the bounded concurrency slot pool.
//
// Every boot attempt gets a fresh run id. All asynchronous work (budget
// timers, late bridge events) is keyed by the run id it was armed for, so a
// restart invalidates the previous attempt's callbacks without racing them.
package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/shared/id"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

var (
	// ErrDisposed is returned when operating on a disposed session.
	ErrDisposed = errors.New("session disposed")

	// ErrConcurrencyLimit is returned when the surface's slot pool is
	// exhausted. The attempt is rejected before any boot work happens.
	ErrConcurrencyLimit = errors.New("too many capsules running")
)

// Viewer-facing budget violation messages. Deliberately free of internal
// detail.
const (
	msgBootTimeout = "Preview took too long to start"
	msgRunTimeout  = "Capsule ran out of time"
)

// Budgets are the boot and run ceilings for one surface.
type Budgets struct {
	Boot time.Duration
	Run  time.Duration
}

// Snapshot is the complete observable state of a session at one instant.
// Subscribers always receive full snapshots, never deltas.
type Snapshot struct {
	Status     Status    `json:"status"`
	Surface    Surface   `json:"surface"`
	RunID      id.RunID  `json:"runId"`
	Error      string    `json:"error,omitempty"`
	Paused     bool      `json:"paused"`
	BootTimeMs int64     `json:"bootTimeMs"`
	StartedAt  time.Time `json:"startedAt"`
}

// Subscriber receives state snapshots. Called synchronously on every
// transition, and once immediately on subscribe.
type Subscriber func(Snapshot)

// Session is one viewer's runtime attachment to a capsule.
type Session struct {
	mu      sync.Mutex
	surface Surface
	capsule id.CapsuleID
	budgets Budgets
	pool    *SlotPool
	logger  *zap.Logger

	status     Status
	errMsg     string
	runID      id.RunID
	token      string
	paused     bool
	bootTimeMs int64
	startedAt  time.Time

	bootTimer    *time.Timer
	runTimer     *time.Timer
	runRemaining time.Duration
	runArmedAt   time.Time

	subscribers map[int]Subscriber
	nextSub     int
	disposed    bool
}

// NewSession creates an idle session for one capsule on one surface.
func NewSession(surface Surface, capsule id.CapsuleID, budgets Budgets, pool *SlotPool, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		surface:     surface,
		capsule:     capsule,
		budgets:     budgets,
		pool:        pool,
		logger:      logger,
		status:      StatusIdle,
		subscribers: make(map[int]Subscriber),
	}
}

// Start begins a boot attempt. A fresh run id is generated every call, which
// invalidates all callbacks armed for the previous attempt. Fails with
// ErrConcurrencyLimit when the surface pool is exhausted.
func (s *Session) Start() (id.RunID, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return "", ErrDisposed
	}

	// A restart tears down the previous attempt first.
	s.stopTimersLocked()
	s.releaseSlotLocked()

	runID := id.NewRunID()
	s.runID = runID

	reservation, ok := s.pool.Reserve(s.surface)
	if !ok {
		s.status = StatusError
		s.errMsg = ErrConcurrencyLimit.Error()
		snap, subs := s.snapshotLocked()
		s.mu.Unlock()
		notify(subs, snap)
		return "", ErrConcurrencyLimit
	}
	s.token = reservation.Token

	s.status = StatusLoading
	s.errMsg = ""
	s.paused = false
	s.bootTimeMs = 0
	s.startedAt = time.Now()

	s.bootTimer = time.AfterFunc(s.budgets.Boot, func() { s.expireBoot(runID) })
	s.runRemaining = s.budgets.Run
	s.runArmedAt = s.startedAt
	s.runTimer = time.AfterFunc(s.budgets.Run, func() { s.expireRun(runID) })

	s.logger.Info("session boot started",
		zap.String("capsule_id", s.capsule.String()),
		zap.String("run_id", runID.String()),
		zap.String("surface", string(s.surface)))

	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
	return runID, nil
}

// MarkReady transitions loading -> ready for the given run. Stale run ids
// are ignored. The boot timer is cancelled; the run timer keeps going.
func (s *Session) MarkReady(runID id.RunID, bootTimeMs int64) {
	s.mu.Lock()
	if !s.currentLocked(runID) || s.status != StatusLoading {
		s.mu.Unlock()
		return
	}

	if s.bootTimer != nil {
		s.bootTimer.Stop()
		s.bootTimer = nil
	}
	s.status = StatusReady
	s.bootTimeMs = bootTimeMs
	s.pool.Confirm(s.token, runID.String())

	s.logger.Info("session ready",
		zap.String("run_id", runID.String()),
		zap.Int64("boot_time_ms", bootTimeMs))

	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

// MarkError fails the given run with a viewer-facing message. Stale run ids
// are ignored. The slot is released; the session can be restarted.
func (s *Session) MarkError(runID id.RunID, message string) {
	s.mu.Lock()
	if !s.currentLocked(runID) || (s.status != StatusLoading && s.status != StatusReady) {
		s.mu.Unlock()
		return
	}
	s.failLocked(message)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

// Pause suspends the run budget, preserving the remaining allowance. The
// status is unchanged; only the clock stops.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.disposed || s.paused || (s.status != StatusLoading && s.status != StatusReady) {
		s.mu.Unlock()
		return
	}

	s.paused = true
	if s.runTimer != nil {
		s.runTimer.Stop()
		s.runTimer = nil
		s.runRemaining -= time.Since(s.runArmedAt)
		if s.runRemaining < 0 {
			s.runRemaining = 0
		}
	}

	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

// Resume re-arms the run budget with whatever allowance Pause preserved.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.disposed || !s.paused || (s.status != StatusLoading && s.status != StatusReady) {
		s.mu.Unlock()
		return
	}

	s.paused = false
	runID := s.runID
	if s.runRemaining <= 0 {
		s.failLocked(msgRunTimeout)
	} else {
		s.runArmedAt = time.Now()
		s.runTimer = time.AfterFunc(s.runRemaining, func() { s.expireRun(runID) })
	}

	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

// Dispose tears the session down. Idempotent and safe from any state; after
// disposal every operation is a no-op and subscribers are dropped.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	s.stopTimersLocked()
	s.releaseSlotLocked()
	s.subscribers = nil
}

// Subscribe registers a subscriber and immediately delivers the current
// snapshot. The returned function unsubscribes; calling it twice is fine.
func (s *Session) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	if s.disposed {
		snap, _ := s.snapshotLocked()
		s.mu.Unlock()
		fn(snap)
		return func() {}
	}

	key := s.nextSub
	s.nextSub++
	s.subscribers[key] = fn
	snap, _ := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.subscribers != nil {
			delete(s.subscribers, key)
		}
	}
}

// State returns the current snapshot.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := s.snapshotLocked()
	return snap
}

// RunID returns the current run id.
func (s *Session) RunID() id.RunID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Session) expireBoot(runID id.RunID) {
	s.mu.Lock()
	if !s.currentLocked(runID) || s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	s.failLocked(msgBootTimeout)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Session) expireRun(runID id.RunID) {
	s.mu.Lock()
	if !s.currentLocked(runID) || (s.status != StatusLoading && s.status != StatusReady) {
		s.mu.Unlock()
		return
	}
	s.failLocked(msgRunTimeout)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Session) currentLocked(runID id.RunID) bool {
	return !s.disposed && runID != "" && s.runID == runID
}

func (s *Session) failLocked(message string) {
	s.stopTimersLocked()
	s.releaseSlotLocked()
	s.status = StatusError
	s.errMsg = message
	s.logger.Warn("session failed",
		zap.String("run_id", s.runID.String()),
		zap.String("reason", message))
}

func (s *Session) stopTimersLocked() {
	if s.bootTimer != nil {
		s.bootTimer.Stop()
		s.bootTimer = nil
	}
	if s.runTimer != nil {
		s.runTimer.Stop()
		s.runTimer = nil
	}
}

func (s *Session) releaseSlotLocked() {
	if s.token != "" {
		s.pool.Release(s.token)
		s.token = ""
	}
}

func (s *Session) snapshotLocked() (Snapshot, []Subscriber) {
	snap := Snapshot{
		Status:     s.status,
		Surface:    s.surface,
		RunID:      s.runID,
		Error:      s.errMsg,
		Paused:     s.paused,
		BootTimeMs: s.bootTimeMs,
		StartedAt:  s.startedAt,
	}
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return snap, subs
}

func notify(subs []Subscriber, snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
