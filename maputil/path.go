// Package maputil converts flat dotted-key configuration into nested maps.
//
// Properties namespaces are served as flat pairs such as
// "server.port" = "8080". Expanding them into nested maps lets them be decoded
// into structs the same way as JSON or YAML content.
package maputil

import (
	"sort"
	"strings"
)

// DefaultSeparator separates path segments in property keys.
const DefaultSeparator = "."

// Expand builds a nested map from flat keys split on sep.
//
// Keys are processed in sorted order so the result is deterministic. When a
// key is both a leaf and a parent (e.g. "a" and "a.b"), the parent wins. The
// leaf value is kept under its full flat key at the top level when that slot
// is free, and dropped otherwise.
//
// Example:
//
//	Expand(map[string]string{"server.port": "8080", "name": "app"}, ".")
//	// map[string]any{"server": map[string]any{"port": "8080"}, "name": "app"}
func Expand(flat map[string]string, sep string) map[string]any {
	if sep == "" {
		sep = DefaultSeparator
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Longer keys first so parents are created before shorter leaves collide.
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := strings.Count(keys[i], sep), strings.Count(keys[j], sep)
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})

	result := make(map[string]any, len(flat))
	for _, k := range keys {
		if SetPath(result, strings.Split(k, sep), flat[k]) {
			continue
		}
		if _, exists := result[k]; !exists {
			result[k] = flat[k]
		}
	}
	return result
}

// SetPath sets a value at the given path in a nested map.
// Creates intermediate maps as needed.
// Returns false if the path is empty or collides with an existing value.
func SetPath(data map[string]any, keys []string, value any) bool {
	if len(keys) == 0 {
		return false
	}

	current := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key]
		if !ok {
			m := make(map[string]any)
			current[key] = m
			current = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = m
	}

	last := keys[len(keys)-1]
	if _, exists := current[last]; exists {
		return false
	}
	current[last] = value
	return true
}

// GetPath retrieves a value at a sep-separated path from a nested map.
// Returns the value and true if found, or nil and false if not found.
//
// Example:
//
//	value, ok := GetPath(data, "server.port", ".")
func GetPath(data map[string]any, path, sep string) (any, bool) {
	if path == "" {
		return data, true
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	var current any = data
	for _, key := range strings.Split(path, sep) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
