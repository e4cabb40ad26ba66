package session

import (
	"testing"

	"github.com/capsulehq/capsuled/internal/infrastructure/config"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(config.Default(), nil)

	sessionID, sess, err := m.Create(SurfacePlayer, id.NewCapsuleID())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, ok := m.Get(sessionID); !ok || got != sess {
		t.Fatal("Get did not return the created session")
	}

	if _, _, err := m.Create("billboard", id.NewCapsuleID()); err == nil {
		t.Error("unknown surface accepted")
	}

	m.Remove(sessionID)
	if _, ok := m.Get(sessionID); ok {
		t.Error("removed session still retrievable")
	}
	if _, err := sess.Start(); err != ErrDisposed {
		t.Errorf("removed session not disposed: %v", err)
	}

	// Unknown id: no-op.
	m.Remove(id.NewSessionID())
}

func TestManagerBudgetsPerSurface(t *testing.T) {
	cfg := config.Default()
	m := NewManager(cfg, nil)

	if got := m.Budgets(SurfaceFeed); got.Boot != cfg.Budgets.FeedBoot || got.Run != cfg.Budgets.FeedRun {
		t.Errorf("feed budgets mismatch: %+v", got)
	}
	if m.Budgets(SurfacePlayer).Run <= m.Budgets(SurfaceFeed).Run {
		t.Error("player run budget should exceed feed run budget")
	}
}

func TestManagerStats(t *testing.T) {
	m := NewManager(config.Default(), nil)
	_, sess, _ := m.Create(SurfaceEmbed, id.NewCapsuleID())
	sess.Start()

	stats := m.Stats()
	if stats["total_sessions"] != 1 {
		t.Errorf("expected 1 session, got %v", stats["total_sessions"])
	}
	byStatus, ok := stats["by_status"].(map[Status]int)
	if !ok || byStatus[StatusLoading] != 1 {
		t.Errorf("unexpected status breakdown: %v", stats["by_status"])
	}
}
