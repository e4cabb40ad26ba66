package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/capsulehq/capsuled/internal/domain/capability"
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestExecuteBasic(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), "1 + 2")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value != int64(3) {
		t.Errorf("expected 3, got %v (%T)", result.Value, result.Value)
	}
}

func TestConsoleCapture(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), `console.log("hello", 42); console.error("bad")`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Console) != 2 {
		t.Fatalf("expected 2 console entries, got %d", len(result.Console))
	}
	if result.Console[0].Message != "hello 42" || result.Console[0].Level != "log" {
		t.Errorf("unexpected entry: %+v", result.Console[0])
	}
	if result.Console[1].Level != "error" {
		t.Errorf("unexpected level: %+v", result.Console[1])
	}
}

func TestGuardStorageThrows(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), `
		var out = "reachable";
		try { localStorage.setItem("k", "v"); } catch (e) { out = "blocked"; }
		out
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value != "blocked" {
		t.Errorf("localStorage should be unreachable, got %v", result.Value)
	}
}

func TestGuardCookiesEmptyAndLocked(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), `
		document.cookie = "probe=1";
		document.cookie
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value != "" {
		t.Errorf("cookie writes must not stick, got %v", result.Value)
	}
}

func TestGuardWindowOpenRemoved(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), `typeof window.open`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value != "undefined" {
		t.Errorf("window.open should be removed, got %v", result.Value)
	}
}

func TestGuardReportsAllSteps(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	steps := r.Hardenings()
	if len(steps) != 5 {
		t.Fatalf("expected 5 hardening steps, got %d", len(steps))
	}
	for _, s := range steps {
		if !s.Applied {
			t.Errorf("step %s not applied: %s", s.Step, s.Detail)
		}
	}
	if warnings := Warnings(steps); len(warnings) != 0 {
		t.Errorf("fully hardened sandbox should produce no warnings, got %v", warnings)
	}
}

func TestCapabilityProbeInsideSandbox(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	result, err := r.Execute(context.Background(), capability.ProbeScript())
	if err != nil {
		t.Fatalf("probe script failed: %v", err)
	}

	raw, ok := result.Value.(string)
	if !ok {
		t.Fatalf("probe should return a JSON string, got %T", result.Value)
	}

	report, err := capability.ParseReport([]byte(raw))
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}

	// The guard makes storage and cookies unavailable, and the VM exposes
	// no fetch or rendering contexts.
	for _, blocked := range []capability.Capability{
		capability.Storage, capability.Cookies, capability.NetworkFetch,
		capability.Canvas2D, capability.WebGL, capability.ParentOriginRead,
	} {
		if report.Has(blocked) {
			t.Errorf("capability %s should be unavailable in the sandbox", blocked)
		}
	}

	if !report.Has(capability.AnimationFrame) {
		t.Error("requestAnimationFrame should be available")
	}
}

func TestAnimationFramePauseQueuesAndResumeFlushes(t *testing.T) {
	r := newRuntime(t)
	defer r.Close()

	_, err := r.Execute(context.Background(), `
		var ticks = 0;
		requestAnimationFrame(function () { ticks++; });
		requestAnimationFrame(function () { ticks++; });
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	r.Pause()
	if ran := r.RunFrame(); ran != 0 {
		t.Errorf("paused sandbox dispatched %d callbacks", ran)
	}
	if r.PendingFrames() != 2 {
		t.Errorf("expected 2 queued frames, got %d", r.PendingFrames())
	}

	r.Resume()
	if r.PendingFrames() != 0 {
		t.Errorf("resume should flush the queue, %d left", r.PendingFrames())
	}

	result, err := r.Execute(context.Background(), "ticks")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value != int64(2) {
		t.Errorf("expected both callbacks to run after resume, got %v", result.Value)
	}
}

func TestExecuteTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond

	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Close()

	_, err = r.Execute(context.Background(), "while (true) {}")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout in error, got %v", err)
	}
}

func TestPoolRoundTrip(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	result, err := pool.Execute(context.Background(), `"pooled"`)
	if err != nil {
		t.Fatalf("pool Execute failed: %v", err)
	}
	if result.Value != "pooled" {
		t.Errorf("unexpected value: %v", result.Value)
	}

	stats := pool.Stats()
	if stats["available"] != 2 {
		t.Errorf("expected sandbox returned to pool, got %v", stats)
	}
}

func TestPoolResetClearsState(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Execute(context.Background(), `var leaked = "secret"`); err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}

	result, err := pool.Execute(context.Background(), `typeof leaked`)
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	if result.Value != "undefined" {
		t.Errorf("state leaked across pool uses: %v", result.Value)
	}
}
