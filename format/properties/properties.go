// Package properties decodes properties namespaces.
//
// Properties namespaces are served as flat key/value pairs rather than as a
// content document. Keys are expanded on "." into nested maps before decoding.
package properties

import (
	"github.com/jmjoy/apollo-client/decoder"
	"github.com/jmjoy/apollo-client/maputil"
)

// Parse expands flat properties into a nested map.
func Parse(configurations map[string]string) map[string]any {
	return maputil.Expand(configurations, maputil.DefaultSeparator)
}

// Decode expands configurations and decodes them into target using dec.
// A nil dec selects decoder.Mapstructure.
func Decode(configurations map[string]string, target any, dec decoder.Func) error {
	if dec == nil {
		dec = decoder.Mapstructure
	}
	return dec(Parse(configurations), target)
}
