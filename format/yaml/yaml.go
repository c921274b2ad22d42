// Package yaml decodes YAML namespace content using gopkg.in/yaml.v3.
package yaml

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode decodes YAML content into target.
func Decode(content []byte, target any) error {
	if err := yaml.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to decode YAML: %w", err)
	}
	return nil
}

// Parse parses YAML content into a map.
//
// Empty input is treated as an empty document. The root node must be a mapping.
func Parse(content []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return map[string]any{}, nil
	}

	var root any
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if root == nil {
		return map[string]any{}, nil
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse YAML: root must be a mapping, got %T", root)
	}
	return obj, nil
}
