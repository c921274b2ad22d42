package configservice

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds a single namespace fetch.
const DefaultFetchTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
// The client's own Timeout should be zero; long polls are bounded per request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAccessKey enables request signing with the application's access key secret.
func WithAccessKey(secret string) Option {
	return func(c *Client) {
		c.secret = secret
	}
}

// WithFetchTimeout sets the timeout of namespace fetches.
// Zero disables the client-side timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.fetchTimeout = d
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// withClock overrides the signing clock in tests.
func withClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}
