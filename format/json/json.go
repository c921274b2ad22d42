// Package json decodes JSON namespace content using encoding/json.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode decodes JSON content into target.
func Decode(content []byte, target any) error {
	if err := json.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// Parse parses JSON content into a map.
//
// The root value must be a JSON object. Empty/whitespace input is treated as an
// empty object.
func Parse(content []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	var root any
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if root == nil {
		return map[string]any{}, nil
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse JSON: root must be an object, got %T", root)
	}
	return obj, nil
}
