package source

import (
	"fmt"

	"github.com/jmjoy/apollo-client/decoder"
	"github.com/jmjoy/apollo-client/format"
	"github.com/jmjoy/apollo-client/format/properties"
)

// ContentKey is the configuration key holding the raw document of
// non-properties namespaces.
const ContentKey = "content"

// Config is the payload of one namespace release.
type Config struct {
	AppID          string            `json:"appId"`
	Cluster        string            `json:"cluster"`
	NamespaceName  string            `json:"namespaceName"`
	Configurations map[string]string `json:"configurations"`
	ReleaseKey     string            `json:"releaseKey"`
}

// Kind returns the format inferred from the namespace name.
func (c *Config) Kind() format.Kind {
	return format.Infer(c.NamespaceName)
}

// Content returns the raw document of a non-properties namespace.
// It is empty for properties namespaces.
func (c *Config) Content() string {
	if !c.Kind().HasContent() {
		return ""
	}
	return c.Configurations[ContentKey]
}

// Value returns a single configuration value.
func (c *Config) Value(key string) (string, bool) {
	v, ok := c.Configurations[key]
	return v, ok
}

// Decode decodes the payload into target according to the namespace kind.
//
// Properties are expanded on "." and decoded with weak typing, so
// `mapstructure` tags apply. Other kinds decode their content with the
// format's own tags (`json`, `yaml`, `toml`, `xml`). Text namespaces need a
// *string or *[]byte target.
func (c *Config) Decode(target any) error {
	return c.DecodeWith(target, decoder.Mapstructure)
}

// DecodeWith is like Decode but uses dec for properties namespaces.
func (c *Config) DecodeWith(target any, dec decoder.Func) error {
	kind := c.Kind()
	if !kind.HasContent() {
		if err := properties.Decode(c.Configurations, target, dec); err != nil {
			return &DecodeError{Namespace: c.NamespaceName, Err: err}
		}
		return nil
	}

	codec, err := format.For(kind)
	if err != nil {
		return err
	}
	if err := codec.Decode([]byte(c.Content()), target); err != nil {
		return &DecodeError{Namespace: c.NamespaceName, Err: err}
	}
	return nil
}

// Map returns the payload as a generic tree.
// XML and text namespaces have no tree and return format.ErrNoTree.
func (c *Config) Map() (map[string]any, error) {
	kind := c.Kind()
	if !kind.HasContent() {
		return properties.Parse(c.Configurations), nil
	}

	codec, err := format.For(kind)
	if err != nil {
		return nil, err
	}
	m, err := codec.Parse([]byte(c.Content()))
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", c.NamespaceName, err)
	}
	return m, nil
}
