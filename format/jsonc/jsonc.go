// Package jsonc decodes JSON-with-comments namespace content.
//
// Content is standardized with github.com/tailscale/hujson (comments and
// trailing commas removed) and then decoded with encoding/json.
package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// standardize strips comments and trailing commas.
func standardize(content []byte) ([]byte, error) {
	v, err := hujson.Parse(bytes.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSONC: %w", err)
	}
	v.Standardize()
	return v.Pack(), nil
}

// Decode decodes JSONC content into target.
func Decode(content []byte, target any) error {
	std, err := standardize(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(std, target); err != nil {
		return fmt.Errorf("failed to decode JSONC: %w", err)
	}
	return nil
}

// Parse parses JSONC content into a map.
// Returns an empty map if content is empty.
func Parse(content []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return map[string]any{}, nil
	}

	std, err := standardize(content)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(std, &result); err != nil {
		return nil, fmt.Errorf("failed to decode JSONC: %w", err)
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}
