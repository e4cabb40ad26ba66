package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// ParseJSON decodes a manifest authored as JSON. Parsing does not validate;
// callers run Validate on the result.
func ParseJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}
	return &m, nil
}

// ParseYAML decodes a manifest authored as YAML (capsule.yaml).
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	return &m, nil
}
