package manifest

import (
	"regexp"
	"strings"
)

// identRe is the shape of a safe param identifier after normalization.
var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CreateDefault produces a minimal valid manifest for scaffolding a new
// capsule with the given runner.
func CreateDefault(runner Runner) *Manifest {
	m := &Manifest{
		Version: Version,
		Runner:  runner,
		Entry:   "index.html",
		License: "MIT",
	}

	switch runner {
	case RunnerWebContainer:
		m.Entry = "index.js"
	case RunnerWorkerEdge:
		m.Entry = "worker.js"
		m.EdgeWorker = &EdgeWorkerConfig{Script: "worker.js"}
	}

	return m
}

// NormalizeParamName lowercases a name, maps separators to underscores and
// drops every other character. Returns "" when nothing safe remains.
func NormalizeParamName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '-', r == ' ', r == '.':
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = out[:32]
	}
	if !identRe.MatchString(out) {
		return ""
	}
	return out
}

// UpdateParams merges new default values into the manifest's params. Each
// incoming name is normalized first; values whose names do not survive
// normalization, or that match no declared param, are never written through.
func UpdateParams(m *Manifest, values map[string]interface{}) {
	if m == nil || len(values) == 0 {
		return
	}

	byName := make(map[string]*Param, len(m.Params))
	for i := range m.Params {
		byName[m.Params[i].Name] = &m.Params[i]
	}

	for name, value := range values {
		norm := NormalizeParamName(name)
		if norm == "" {
			continue
		}
		if p, ok := byName[norm]; ok {
			p.Default = value
		}
	}
}
