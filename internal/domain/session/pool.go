package session

import (
	"sync"

	"github.com/google/uuid"
)

// Surface identifies where a capsule is being rendered. Each surface draws
// from its own slot pool and gets its own budgets.
type Surface string

const (
	SurfacePlayer Surface = "player"
	SurfaceFeed   Surface = "feed"
	SurfaceEmbed  Surface = "embed"
)

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	switch s {
	case SurfacePlayer, SurfaceFeed, SurfaceEmbed:
		return true
	}
	return false
}

// Reservation is a held concurrency slot.
type Reservation struct {
	Token   string
	Surface Surface
}

type slot struct {
	surface Surface
	runID   string
}

// SlotPool is the bounded pool of execution permits shared by all sessions.
// Reserve fails when a surface is exhausted; Confirm re-keys a reservation
// under its run id; Release is an idempotent no-op on double release, to
// tolerate overlapping cleanup paths.
type SlotPool struct {
	mu       sync.Mutex
	capacity map[Surface]int
	held     map[string]*slot
}

// NewSlotPool creates a pool with per-surface capacities.
func NewSlotPool(capacity map[Surface]int) *SlotPool {
	caps := make(map[Surface]int, len(capacity))
	for s, n := range capacity {
		caps[s] = n
	}
	return &SlotPool{
		capacity: caps,
		held:     make(map[string]*slot),
	}
}

// Reserve attempts to take a slot for the surface. Returns allowed=false
// when the pool is exhausted; the caller must surface the violation before
// attempting to boot.
func (p *SlotPool) Reserve(surface Surface) (Reservation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	capacity, ok := p.capacity[surface]
	if !ok || p.inUseLocked(surface) >= capacity {
		return Reservation{}, false
	}

	token := uuid.New().String()
	p.held[token] = &slot{surface: surface}
	return Reservation{Token: token, Surface: surface}, true
}

// Confirm re-keys a held reservation under the stable run id, so an async
// reservation race cannot drop a legitimately running session. Idempotent.
func (p *SlotPool) Confirm(token, runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.held[token]; ok {
		s.runID = runID
	}
}

// Release frees a slot. Releasing an unknown or already-released token is a
// no-op, never an error.
func (p *SlotPool) Release(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.held, token)
}

// InUse reports how many slots the surface currently holds.
func (p *SlotPool) InUse(surface Surface) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUseLocked(surface)
}

func (p *SlotPool) inUseLocked(surface Surface) int {
	n := 0
	for _, s := range p.held {
		if s.surface == surface {
			n++
		}
	}
	return n
}

// Stats returns per-surface usage.
func (p *SlotPool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]interface{}, len(p.capacity))
	for surface, capacity := range p.capacity {
		out[string(surface)] = map[string]int{
			"capacity": capacity,
			"in_use":   p.inUseLocked(surface),
		}
	}
	return out
}
