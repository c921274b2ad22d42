package format

import (
	"errors"
	"fmt"

	"github.com/jmjoy/apollo-client/format/json"
	"github.com/jmjoy/apollo-client/format/jsonc"
	"github.com/jmjoy/apollo-client/format/toml"
	"github.com/jmjoy/apollo-client/format/txt"
	"github.com/jmjoy/apollo-client/format/xml"
	"github.com/jmjoy/apollo-client/format/yaml"
)

// ErrNoTree is returned by Codec.Parse for formats that have no generic
// map representation (xml, txt).
var ErrNoTree = errors.New("format has no generic map representation")

// ParseFunc parses content into a generic tree.
type ParseFunc func(content []byte) (map[string]any, error)

// DecodeFunc decodes content into target.
type DecodeFunc func(content []byte, target any) error

// Codec decodes the content of one namespace kind.
type Codec interface {
	// Kind returns the format this codec handles.
	Kind() Kind

	// Decode decodes content into target, which must be a non-nil pointer.
	Decode(content []byte, target any) error

	// Parse decodes content into a generic tree.
	// Returns ErrNoTree for formats without a map representation.
	Parse(content []byte) (map[string]any, error)
}

// CodecConfig configures optional codec behavior.
type CodecConfig struct {
	// Parse is the generic tree parser. Nil means the format has no tree.
	Parse ParseFunc
}

// NewCodec creates a Codec with the given kind and decode function.
//
// Example:
//
//	codec := format.NewCodec(format.KindYAML, yaml.Decode, format.CodecConfig{
//	    Parse: yaml.Parse,
//	})
func NewCodec(kind Kind, decode DecodeFunc, cfg CodecConfig) Codec {
	return &codec{
		kind:   kind,
		decode: decode,
		parse:  cfg.Parse,
	}
}

// codec implements Codec using the provided functions.
type codec struct {
	kind   Kind
	decode DecodeFunc
	parse  ParseFunc
}

// Ensure codec implements the Codec interface.
var _ Codec = (*codec)(nil)

// Kind implements the Codec interface.
func (c *codec) Kind() Kind {
	return c.kind
}

// Decode implements the Codec interface.
func (c *codec) Decode(content []byte, target any) error {
	return c.decode(content, target)
}

// Parse implements the Codec interface.
func (c *codec) Parse(content []byte) (map[string]any, error) {
	if c.parse == nil {
		return nil, fmt.Errorf("%s: %w", c.kind, ErrNoTree)
	}
	return c.parse(content)
}

var codecs = map[Kind]Codec{
	KindJSON:  NewCodec(KindJSON, json.Decode, CodecConfig{Parse: json.Parse}),
	KindJSONC: NewCodec(KindJSONC, jsonc.Decode, CodecConfig{Parse: jsonc.Parse}),
	KindYAML:  NewCodec(KindYAML, yaml.Decode, CodecConfig{Parse: yaml.Parse}),
	KindTOML:  NewCodec(KindTOML, toml.Decode, CodecConfig{Parse: toml.Parse}),
	KindXML:   NewCodec(KindXML, xml.Decode, CodecConfig{}),
	KindTXT:   NewCodec(KindTXT, txt.Decode, CodecConfig{}),
}

// UnsupportedKindError is returned when no codec is registered for a kind.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("no codec for namespace format %q", e.Kind)
}

// For returns the codec registered for a content-bearing kind.
// Properties namespaces have no content codec; see package properties.
func For(kind Kind) (Codec, error) {
	c, ok := codecs[kind]
	if !ok {
		return nil, &UnsupportedKindError{Kind: kind}
	}
	return c, nil
}
