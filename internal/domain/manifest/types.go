package manifest

// Version is the only manifest schema version this engine accepts. Bump
// gates forward compatibility at publish time.
const Version = "1.0"

// Limits enforced by the validator.
const (
	MaxParams       = 20
	MaxNetHosts     = 10
	MaxBundleBytes  = 25 * 1024 * 1024 // baseline tier
	MaxEdgeBindings = 8
	MaxLiveMinutes  = 240
)

// Runner selects the execution strategy for a capsule.
type Runner string

const (
	RunnerClientStatic Runner = "client-static"
	RunnerWebContainer Runner = "webcontainer"
	RunnerWorkerEdge   Runner = "worker-edge"
)

// Valid reports whether r is a known runner.
func (r Runner) Valid() bool {
	switch r {
	case RunnerClientStatic, RunnerWebContainer, RunnerWorkerEdge:
		return true
	}
	return false
}

// ParamType identifies the control rendered for a parameter.
type ParamType string

const (
	ParamSlider ParamType = "slider"
	ParamToggle ParamType = "toggle"
	ParamSelect ParamType = "select"
	ParamText   ParamType = "text"
	ParamColor  ParamType = "color"
	ParamNumber ParamType = "number"
)

// Valid reports whether t is a known param type.
func (t ParamType) Valid() bool {
	switch t {
	case ParamSlider, ParamToggle, ParamSelect, ParamText, ParamColor, ParamNumber:
		return true
	}
	return false
}

// Option is one choice of a select param.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Param is one author-declared control.
type Param struct {
	Name    string      `json:"name" yaml:"name"`
	Type    ParamType   `json:"type" yaml:"type"`
	Label   string      `json:"label,omitempty" yaml:"label,omitempty"`
	Default interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	Min     *float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64    `json:"max,omitempty" yaml:"max,omitempty"`
	Step    *float64    `json:"step,omitempty" yaml:"step,omitempty"`
	Options []Option    `json:"options,omitempty" yaml:"options,omitempty"`
}

// Capabilities declares what a capsule is allowed to touch.
type Capabilities struct {
	// Net is a host allowlist. Network capability is policy-disabled, so a
	// non-empty list is always rejected for now.
	Net        []string `json:"net,omitempty" yaml:"net,omitempty"`
	Storage    bool     `json:"storage,omitempty" yaml:"storage,omitempty"`
	Workers    bool     `json:"workers,omitempty" yaml:"workers,omitempty"`
	MaxWorkers int      `json:"maxWorkers,omitempty" yaml:"maxWorkers,omitempty"`
}

// LiveConfig is extended configuration for live multi-user sessions.
type LiveConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	MaxSessionMinutes int  `json:"maxSessionMinutes,omitempty" yaml:"maxSessionMinutes,omitempty"`
	MaxParticipants   int  `json:"maxParticipants,omitempty" yaml:"maxParticipants,omitempty"`
}

// EdgeBinding connects a worker-edge capsule to a named platform resource.
type EdgeBinding struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// EdgeWorkerConfig is extended configuration for the worker-edge runner.
type EdgeWorkerConfig struct {
	Script   string        `json:"script" yaml:"script"`
	Bindings []EdgeBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	MemoryMB int           `json:"memoryMb,omitempty" yaml:"memoryMb,omitempty"`
}

// Asset is one file in the bundle, used for size accounting.
type Asset struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// Manifest is the author-declared configuration for one capsule version.
type Manifest struct {
	Version      string            `json:"version" yaml:"version"`
	Runner       Runner            `json:"runner" yaml:"runner"`
	Entry        string            `json:"entry" yaml:"entry"`
	Params       []Param           `json:"params,omitempty" yaml:"params,omitempty"`
	Capabilities Capabilities      `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Live         *LiveConfig       `json:"live,omitempty" yaml:"live,omitempty"`
	EdgeWorker   *EdgeWorkerConfig `json:"edgeWorker,omitempty" yaml:"edgeWorker,omitempty"`
	BundleSize   int64             `json:"bundleSize,omitempty" yaml:"bundleSize,omitempty"`
	Assets       []Asset           `json:"assets,omitempty" yaml:"assets,omitempty"`
	License      string            `json:"license,omitempty" yaml:"license,omitempty"`
}

// Issue is one validation error or warning, addressed by dotted field path.
type Issue struct {
	Path      string `json:"path"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Result is the outcome of validating a manifest. A manifest is either valid
// (optionally with warnings) or carries a non-empty error list; warnings
// never block publish, errors always do.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Stable error-kind tags for schema violations.
const (
	CodeRequired           = "required"
	CodeInvalidValue       = "invalid_value"
	CodeTooMany            = "too_many"
	CodeUnsupportedVersion = "unsupported_version"
	CodeMalformedHost      = "malformed_host"
)

// Machine codes for policy violations and advisory warnings.
const (
	ErrNetDisabled       = "net_disabled"
	ErrBundleTooLarge    = "bundle_too_large"
	ErrEdgeConfigMissing = "edge_config_missing"
	WarnDefaultOutOfRange = "default_out_of_range"
	WarnMissingLicense   = "missing_license"
	WarnExcessBindings   = "excess_bindings"
	WarnLiveBudget       = "live_budget"
)
