// Package capability models the in-sandbox self-check: which browser
// protections and primitives are actually in effect for a running capsule.
// The check is advisory; enforcement lives in the guard and in the platform
// sandbox attributes.
package capability

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability is one probeable sandbox primitive.
type Capability string

const (
	Storage          Capability = "storage"
	Cookies          Capability = "cookies"
	ParentContext    Capability = "parent-context"
	NetworkFetch     Capability = "network-fetch"
	ParentOriginRead Capability = "parent-origin-read"
	AnimationFrame   Capability = "animation-frame"
	Canvas2D         Capability = "canvas-2d"
	WebGL            Capability = "webgl"
)

// All lists every probeable capability.
func All() []Capability {
	return []Capability{
		Storage, Cookies, ParentContext, NetworkFetch,
		ParentOriginRead, AnimationFrame, Canvas2D, WebGL,
	}
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case Storage, Cookies, ParentContext, NetworkFetch,
		ParentOriginRead, AnimationFrame, Canvas2D, WebGL:
		return true
	}
	return false
}

// Report is the outcome of one in-sandbox check.
type Report struct {
	Available   []Capability `json:"available"`
	Unavailable []Capability `json:"unavailable"`
	Warnings    []string     `json:"warnings"`
}

// Has reports whether c was probed as available.
func (r *Report) Has(c Capability) bool {
	for _, got := range r.Available {
		if got == c {
			return true
		}
	}
	return false
}

// ValidateRequired reports exactly the missing subset of required
// capabilities, or nil when all are present.
func ValidateRequired(r *Report, required []Capability) error {
	var missing []string
	for _, want := range required {
		if !r.Has(want) {
			missing = append(missing, string(want))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required capabilities: %s", strings.Join(missing, ", "))
}

// ParseReport decodes the JSON emitted by the probe script.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse capability report: %w", err)
	}

	for _, c := range append(append([]Capability{}, r.Available...), r.Unavailable...) {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown capability %q in report", c)
		}
	}

	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return &r, nil
}
