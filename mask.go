package apollo

import (
	"maps"
	"strings"
)

// SensitiveMaskFunc masks the value of a sensitive key.
//
// Example:
//
//	func maskHandler(key, value string) string {
//	    return "********"
//	}
type SensitiveMaskFunc func(key, value string) string

// DefaultMaskString replaces sensitive values by default.
const DefaultMaskString = "********"

// DefaultSensitiveKeys are the key fragments treated as sensitive by
// IsSensitiveKey. Matching is case-insensitive.
var DefaultSensitiveKeys = []string{"password", "passwd", "secret", "token", "credential", "private"}

// IsSensitiveKey reports whether a configuration key names a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range DefaultSensitiveKeys {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// MaskString is a SensitiveMaskFunc that replaces every value with DefaultMaskString.
func MaskString(string, string) string {
	return DefaultMaskString
}

// Mask returns a copy of configurations with sensitive values masked by fn.
// A nil fn uses MaskString. The input map is not modified.
func Mask(configurations map[string]string, fn SensitiveMaskFunc) map[string]string {
	if fn == nil {
		fn = MaskString
	}
	out := maps.Clone(configurations)
	for k, v := range out {
		if IsSensitiveKey(k) {
			out[k] = fn(k, v)
		}
	}
	return out
}
