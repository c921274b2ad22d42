package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNotModified is returned when the server reports that nothing changed.
	// For a notification check this is the normal long-poll outcome.
	ErrNotModified = errors.New("not modified")

	// ErrPollTimeout is returned when a notification check outlives its timeout.
	ErrPollTimeout = errors.New("long poll timed out")

	// ErrNamespaceNotFound is matched by errors for a namespace the server does not know.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrAppNotFound is matched by errors for an application the server does not know.
	ErrAppNotFound = errors.New("app not found")
)

// ResponseError is returned for an unexpected HTTP status.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response status %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("unexpected response status %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Resource names what a NotFoundError refers to.
type Resource string

const (
	ResourceNamespace Resource = "namespace"
	ResourceApp       Resource = "app"
)

// NotFoundError is returned when the server answers 404.
// It matches ErrNamespaceNotFound or ErrAppNotFound with errors.Is.
type NotFoundError struct {
	Resource Resource
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return string(e.Resource) + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
}

func (e *NotFoundError) Unwrap() error {
	if e.Resource == ResourceApp {
		return ErrAppNotFound
	}
	return ErrNamespaceNotFound
}

// DecodeError is returned when a response body or payload cannot be decoded.
type DecodeError struct {
	Namespace string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("failed to decode response: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode namespace %s: %v", e.Namespace, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the same request may succeed.
//
// Transport failures, timeouts and 5xx/429 responses are retryable. Not found,
// other 4xx responses, decode failures and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrPollTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		return false
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return false
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Status >= 500 || re.Status == http.StatusTooManyRequests
	}

	var ne net.Error
	return errors.As(err, &ne)
}
