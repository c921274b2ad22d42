package configservice

import (
	"encoding/json"
	"strings"

	"github.com/jmjoy/apollo-client/source"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4 << 10

// errorBody is the JSON error document the config service returns.
type errorBody struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Exception string `json:"exception"`
}

// notFound classifies a 404 response body.
//
// The service reports both unknown applications and unknown namespaces as 404
// and only the message tells them apart. Messages that mention a namespace, or
// that cannot be parsed, are treated as a missing namespace.
func notFound(body []byte) *source.NotFoundError {
	var eb errorBody
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		msg = eb.Message
	}

	lower := strings.ToLower(msg)
	resource := source.ResourceNamespace
	if !strings.Contains(lower, "namespace") && strings.Contains(lower, "app") {
		resource = source.ResourceApp
	}
	return &source.NotFoundError{Resource: resource, Message: msg}
}
