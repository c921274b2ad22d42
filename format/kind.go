// Package format infers the configuration format of a namespace and provides
// the decoder for each format.
//
// The config service stores properties namespaces as key/value pairs. Every
// other format is stored as a single "content" value holding the raw document,
// which is decoded by the Codec registered for the namespace's Kind.
package format

import "strings"

// Kind is the configuration format of a namespace.
type Kind string

const (
	// KindProperties is the default format: a flat set of key/value pairs.
	KindProperties Kind = "properties"

	// KindXML represents XML content (using encoding/xml).
	KindXML Kind = "xml"

	// KindJSON represents standard JSON content.
	KindJSON Kind = "json"

	// KindYAML represents YAML content (using gopkg.in/yaml.v3).
	KindYAML Kind = "yaml"

	// KindTXT represents plain text content.
	KindTXT Kind = "txt"

	// KindTOML represents TOML content (using github.com/pelletier/go-toml/v2).
	KindTOML Kind = "toml"

	// KindJSONC represents JSON with comments (using github.com/tailscale/hujson).
	KindJSONC Kind = "jsonc"
)

// suffixes maps namespace name suffixes to kinds.
// Order matters only for readability; suffixes do not overlap.
var suffixes = []struct {
	suffix string
	kind   Kind
}{
	{".xml", KindXML},
	{".json", KindJSON},
	{".jsonc", KindJSONC},
	{".yml", KindYAML},
	{".yaml", KindYAML},
	{".txt", KindTXT},
	{".toml", KindTOML},
	{".properties", KindProperties},
}

// Infer returns the Kind of a namespace from its name suffix.
// Names without a recognized suffix are properties namespaces.
//
// Example:
//
//	format.Infer("application")      // KindProperties
//	format.Infer("app.json")         // KindJSON
//	format.Infer("datasource.yml")   // KindYAML
func Infer(namespace string) Kind {
	for _, s := range suffixes {
		if strings.HasSuffix(namespace, s.suffix) {
			return s.kind
		}
	}
	return KindProperties
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// HasContent reports whether namespaces of this kind carry their document in
// the "content" configuration key.
func (k Kind) HasContent() bool {
	return k != KindProperties
}
