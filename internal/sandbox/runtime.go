package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Runtime wraps a goja VM with security controls. The guard is installed
// synchronously at construction, before any capsule code can run.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.RWMutex

	hardenings []Hardening

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Animation frame queue. While paused, scheduled callbacks are queued
	// but not dispatched; Resume flushes the queue.
	frames   []goja.Callable
	paused   bool
	framesMu sync.Mutex

	// Interrupt channel
	interrupt chan struct{}
}

// New creates a new sandboxed runtime with the guard installed
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:        vm,
		config:    config,
		console:   []LogEntry{},
		interrupt: make(chan struct{}),
	}

	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	r.hardenings = r.installGuard()

	return r, nil
}

// Hardenings reports the outcome of each guard installation step
func (r *Runtime) Hardenings() []Hardening {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Hardening, len(r.hardenings))
	copy(out, r.hardenings)
	return out
}

// Execute runs JavaScript code with timeout and resource limits
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{Console: []LogEntry{}}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-r.interrupt:
			return
		}
	}()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)

	// Stop interrupt goroutine
	close(r.interrupt)
	r.interrupt = make(chan struct{})

	result.Duration = time.Since(start)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		result.Error = err
		return result, err
	}

	result.Value = r.exportValue(val)
	return result, nil
}

// Pause stops animation frame dispatch; callbacks scheduled while paused
// are queued. This is how the host freezes CPU usage for backgrounded
// capsules without terminating the session.
func (r *Runtime) Pause() {
	r.framesMu.Lock()
	r.paused = true
	r.framesMu.Unlock()
}

// Resume re-enables frame dispatch and flushes the queue
func (r *Runtime) Resume() {
	r.framesMu.Lock()
	r.paused = false
	r.framesMu.Unlock()

	r.RunFrame()
}

// Paused reports whether frame dispatch is suspended
func (r *Runtime) Paused() bool {
	r.framesMu.Lock()
	defer r.framesMu.Unlock()
	return r.paused
}

// PendingFrames reports how many callbacks are queued
func (r *Runtime) PendingFrames() int {
	r.framesMu.Lock()
	defer r.framesMu.Unlock()
	return len(r.frames)
}

// RunFrame dispatches all queued animation frame callbacks, unless paused.
// Returns the number of callbacks executed.
func (r *Runtime) RunFrame() int {
	r.framesMu.Lock()
	if r.paused || len(r.frames) == 0 {
		r.framesMu.Unlock()
		return 0
	}
	batch := r.frames
	r.frames = nil
	r.framesMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.vm.ToValue(float64(time.Now().UnixMilli()))
	ran := 0
	for _, cb := range batch {
		// One bad callback must not starve the rest of the frame queue.
		if _, err := cb(goja.Undefined(), now); err == nil {
			ran++
		}
	}
	return ran
}

// setupGlobals configures global objects before guard installation
func (r *Runtime) setupGlobals() error {
	// Remove host-environment globals
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// window aliases the global object so browser-shaped code runs
	r.vm.Set("window", r.vm.GlobalObject())
	r.vm.Set("self", r.vm.GlobalObject())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}

	// Timers are no-ops; only the frame queue schedules work
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	r.vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		if cb, ok := goja.AssertFunction(call.Arguments[0]); ok {
			r.framesMu.Lock()
			r.frames = append(r.frames, cb)
			id := len(r.frames)
			r.framesMu.Unlock()
			return r.vm.ToValue(id)
		}
		return goja.Undefined()
	})

	return nil
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset clears the runtime state and reinstalls the guard
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = goja.New()
	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	r.console = []LogEntry{}

	r.framesMu.Lock()
	r.frames = nil
	r.paused = false
	r.framesMu.Unlock()

	if err := r.setupGlobals(); err != nil {
		return err
	}
	r.hardenings = r.installGuard()
	return nil
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
