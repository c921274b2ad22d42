// Package xml decodes XML namespace content using encoding/xml.
//
// XML has no generic map form; content can only be decoded into a
// caller-provided struct.
package xml

import (
	"encoding/xml"
	"fmt"
)

// Decode decodes XML content into target.
func Decode(content []byte, target any) error {
	if err := xml.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to decode XML: %w", err)
	}
	return nil
}
