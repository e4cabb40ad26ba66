package bridge

import (
	"errors"
	"sync"
	"testing"
)

type captureTransport struct {
	mu   sync.Mutex
	sent []Envelope
}

func (c *captureTransport) Send(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *captureTransport) envelopes() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope{}, c.sent...)
}

const origin = "https://capsulehq.dev"

func TestResolveTrustedOrigin(t *testing.T) {
	cases := []struct {
		ancestors []string
		referrer  string
		want      string
		ok        bool
	}{
		{[]string{"https://capsulehq.dev"}, "", "https://capsulehq.dev", true},
		{[]string{"", "https://capsulehq.dev"}, "", "https://capsulehq.dev", true},
		{[]string{"null"}, "https://host.example/page?x=1", "https://host.example", true},
		{nil, "https://host.example:8443/embed", "https://host.example:8443", true},
		{nil, "", "", false},
		{nil, "not a url", "", false},
	}

	for _, c := range cases {
		got, ok := ResolveTrustedOrigin(c.ancestors, c.referrer)
		if got != c.want || ok != c.ok {
			t.Errorf("ResolveTrustedOrigin(%v, %q) = (%q, %v), want (%q, %v)",
				c.ancestors, c.referrer, got, ok, c.want, c.ok)
		}
	}
}

func TestReadyIsIdempotent(t *testing.T) {
	transport := &captureTransport{}
	b := New(transport, origin, Handlers{}, nil)

	if err := b.Ready(120, []string{"animation-frame"}); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	if err := b.Ready(999, nil); err != nil {
		t.Fatalf("second Ready failed: %v", err)
	}

	sent := transport.envelopes()
	if len(sent) != 1 {
		t.Fatalf("expected exactly 1 ready event, got %d", len(sent))
	}
	if sent[0].Type != EventReady || sent[0].Source != SourceMarker {
		t.Errorf("unexpected envelope: %+v", sent[0])
	}
	if sent[0].Payload["bootTimeMs"] != int64(120) {
		t.Errorf("second Ready must not win: %v", sent[0].Payload)
	}
}

func TestUnresolvedOriginSuppressesSends(t *testing.T) {
	transport := &captureTransport{}
	b := New(transport, "", Handlers{}, nil)

	b.Ready(1, nil)
	b.Log("info", "hello", nil)
	b.Error("boom", nil)
	b.Stats(StatsPayload{FPS: 60})

	if got := len(transport.envelopes()); got != 0 {
		t.Errorf("expected all sends suppressed, got %d envelopes", got)
	}
}

func TestDispatchChecksOriginAndSource(t *testing.T) {
	transport := &captureTransport{}
	called := false
	b := New(transport, origin, Handlers{
		Kill: func() error { called = true; return nil },
	}, nil)

	// Wrong origin: dropped silently.
	b.Dispatch(Envelope{Type: CmdKill}, "https://evil.example", true)
	if called {
		t.Fatal("command from untrusted origin was dispatched")
	}

	// Right origin, wrong source window: dropped silently.
	b.Dispatch(Envelope{Type: CmdKill}, origin, false)
	if called {
		t.Fatal("command from unexpected source was dispatched")
	}
	if len(transport.envelopes()) != 0 {
		t.Error("dropped messages must not produce events (no probing oracle)")
	}

	b.Dispatch(Envelope{Type: CmdKill}, origin, true)
	if !called {
		t.Fatal("legitimate command was not dispatched")
	}
}

func TestDispatchSetParams(t *testing.T) {
	var got map[string]interface{}
	b := New(&captureTransport{}, origin, Handlers{
		SetParams: func(params map[string]interface{}) error { got = params; return nil },
	}, nil)

	b.Dispatch(Envelope{
		Type:    CmdSetParams,
		Payload: map[string]interface{}{"params": map[string]interface{}{"speed": 4.0}},
	}, origin, true)

	if got == nil || got["speed"] != 4.0 {
		t.Errorf("setParams payload not delivered: %v", got)
	}
}

func TestDispatchHandlerErrorBecomesErrorEvent(t *testing.T) {
	transport := &captureTransport{}
	b := New(transport, origin, Handlers{
		Restart: func() error { return errors.New("no restart today") },
	}, nil)

	b.Dispatch(Envelope{Type: CmdRestart}, origin, true)

	sent := transport.envelopes()
	if len(sent) != 1 || sent[0].Type != EventError {
		t.Fatalf("expected 1 error event, got %+v", sent)
	}
}

func TestDispatchHandlerPanicIsIsolated(t *testing.T) {
	transport := &captureTransport{}
	b := New(transport, origin, Handlers{
		Kill: func() error { panic("handler bug") },
	}, nil)

	// Must not propagate the panic.
	b.Dispatch(Envelope{Type: CmdKill}, origin, true)

	sent := transport.envelopes()
	if len(sent) != 1 || sent[0].Type != EventError {
		t.Fatalf("expected panic surfaced as error event, got %+v", sent)
	}

	// Loop still alive: next command dispatches fine.
	b.Dispatch(Envelope{Type: CmdPause}, origin, true)
}

func TestDispatchMissingHandlersAreSafeNoOps(t *testing.T) {
	transport := &captureTransport{}
	b := New(transport, origin, Handlers{}, nil)

	for _, cmd := range []string{CmdSetParams, CmdPause, CmdRestart, CmdKill, "unknown-future-cmd"} {
		b.Dispatch(Envelope{Type: cmd}, origin, true)
	}

	if got := len(transport.envelopes()); got != 0 {
		t.Errorf("default handlers should be silent no-ops, got %d events", got)
	}
}
