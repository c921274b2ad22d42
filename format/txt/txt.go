// Package txt decodes plain text namespace content.
package txt

import "fmt"

// Decode copies content into target, which must be a *string or *[]byte.
func Decode(content []byte, target any) error {
	switch t := target.(type) {
	case *string:
		*t = string(content)
	case *[]byte:
		*t = append([]byte(nil), content...)
	default:
		return fmt.Errorf("failed to decode text: target must be *string or *[]byte, got %T", target)
	}
	return nil
}
