// Package decoder converts decoded configuration maps into structs.
package decoder

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Func is a function that decodes a map[string]any into a target struct.
// Implementations should handle type conversion as needed.
type Func func(data map[string]any, target any) error

// JSON decodes a map into target through a JSON round trip.
// Field names follow `json` tags; values are not converted between types.
func JSON(m map[string]any, target any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal to target type: %w", err)
	}

	return nil
}

// DefaultTagName is the struct tag read by Mapstructure.
const DefaultTagName = "mapstructure"

// Mapstructure decodes a map into target with weak typing, so string values
// such as "8080", "true" or "5s" decode into int, bool and time.Duration
// fields. Comma-separated strings decode into slices.
//
// This is the default decoder for properties namespaces, whose values are
// always strings.
func Mapstructure(m map[string]any, target any) error {
	return WithTagName(DefaultTagName)(m, target)
}

// WithTagName returns a Mapstructure decoder that reads the given struct tag
// instead of `mapstructure`.
//
// Example:
//
//	dec := decoder.WithTagName("json")
//	err := dec(data, &cfg)
func WithTagName(tag string) Func {
	return func(m map[string]any, target any) error {
		d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target,
			TagName:          tag,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		})
		if err != nil {
			return fmt.Errorf("failed to create decoder: %w", err)
		}
		if err := d.Decode(m); err != nil {
			return fmt.Errorf("failed to decode map: %w", err)
		}
		return nil
	}
}
