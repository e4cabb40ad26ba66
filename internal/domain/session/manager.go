package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

// Manager owns all live sessions and the shared slot pool.
type Manager struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	pool     *SlotPool
	budgets  map[Surface]Budgets
	logger   *zap.Logger
}

// NewManager creates a session manager with per-surface pools and budgets
// taken from configuration.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[id.SessionID]*Session),
		pool: NewSlotPool(map[Surface]int{
			SurfacePlayer: cfg.Pools.PlayerSlots,
			SurfaceFeed:   cfg.Pools.FeedSlots,
			SurfaceEmbed:  cfg.Pools.EmbedSlots,
		}),
		budgets: map[Surface]Budgets{
			SurfacePlayer: {Boot: cfg.Budgets.PlayerBoot, Run: cfg.Budgets.PlayerRun},
			SurfaceFeed:   {Boot: cfg.Budgets.FeedBoot, Run: cfg.Budgets.FeedRun},
			SurfaceEmbed:  {Boot: cfg.Budgets.EmbedBoot, Run: cfg.Budgets.EmbedRun},
		},
		logger: logger,
	}
}

// Create registers a new idle session for a capsule on a surface.
func (m *Manager) Create(surface Surface, capsule id.CapsuleID) (id.SessionID, *Session, error) {
	if !surface.Valid() {
		return "", nil, fmt.Errorf("unknown surface: %s", surface)
	}

	sessionID := id.NewSessionID()
	sess := NewSession(surface, capsule, m.budgets[surface], m.pool, m.logger)

	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session_id", sessionID.String()),
		zap.String("capsule_id", capsule.String()),
		zap.String("surface", string(surface)))

	return sessionID, sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(sessionID id.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// Remove disposes a session and forgets it. Unknown ids are a no-op.
func (m *Manager) Remove(sessionID id.SessionID) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		sess.Dispose()
	}
}

// Pool exposes the shared slot pool.
func (m *Manager) Pool() *SlotPool {
	return m.pool
}

// Budgets returns the budgets configured for a surface.
func (m *Manager) Budgets(surface Surface) Budgets {
	return m.budgets[surface]
}

// Stats returns manager statistics for monitoring.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	total := len(m.sessions)
	byStatus := make(map[Status]int)
	for _, sess := range m.sessions {
		byStatus[sess.State().Status]++
	}
	m.mu.RUnlock()

	return map[string]interface{}{
		"total_sessions": total,
		"by_status":      byStatus,
		"slots":          m.pool.Stats(),
	}
}
