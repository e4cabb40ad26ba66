package sandbox

import "time"

// Config defines sandbox configuration
type Config struct {
	MaxCallStackSize int           // Maximum JS call stack depth
	Timeout          time.Duration // Execution timeout
	EnableConsole    bool          // Allow console.log/warn/error
}

// DefaultConfig returns a sandbox configuration suitable for capsule scripts
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		Timeout:          5 * time.Second,
		EnableConsole:    true,
	}
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
	Error    error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// Hardening records the outcome of one guard installation step. Partial
// hardening is a warning-level condition, not a failure: the sandbox keeps
// running and the capability check reports the gap.
type Hardening struct {
	Step    string `json:"step"`
	Applied bool   `json:"applied"`
	Detail  string `json:"detail,omitempty"`
}

// Warnings converts failed hardening steps into capability-check warnings
func Warnings(steps []Hardening) []string {
	var out []string
	for _, s := range steps {
		if !s.Applied {
			out = append(out, "guard step "+s.Step+" was not applied: "+s.Detail)
		}
	}
	return out
}
