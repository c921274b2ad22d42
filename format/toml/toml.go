// Package toml decodes TOML namespace content using github.com/pelletier/go-toml/v2.
package toml

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// Decode decodes TOML content into target.
func Decode(content []byte, target any) error {
	if err := toml.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to decode TOML: %w", err)
	}
	return nil
}

// Parse parses TOML content into a map.
// Returns an empty map if content is empty.
func Parse(content []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := toml.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}
