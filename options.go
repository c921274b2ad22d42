package apollo

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jmjoy/apollo-client/clientip"
	"github.com/jmjoy/apollo-client/watcher"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient   *http.Client
	cluster      string
	secret       string
	ip           clientip.Value
	resolver     clientip.Resolver
	fetchTimeout time.Duration
	logger       *slog.Logger
	watchOpts    []watcher.Option
}

// WithHTTPClient sets the HTTP client. Its Timeout should be zero; long polls
// are bounded per request.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithCluster sets the default cluster. Default is "default".
func WithCluster(cluster string) Option {
	return func(o *options) {
		o.cluster = cluster
	}
}

// WithAccessKey signs every request with the application's access key secret.
func WithAccessKey(secret string) Option {
	return func(o *options) {
		o.secret = secret
	}
}

// WithClientIP sets the client identity sent as the "ip" parameter.
// It is resolved once when the Client is created.
func WithClientIP(v clientip.Value) Option {
	return func(o *options) {
		o.ip = v
	}
}

// WithResolver sets the host lookup used to resolve WithClientIP values.
func WithResolver(r clientip.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithFetchTimeout sets the timeout of a single namespace fetch. Default is 30 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithLogger sets the logger for the client and its watch sessions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWatchOptions sets options applied to every watch session.
func WithWatchOptions(opts ...watcher.Option) Option {
	return func(o *options) {
		o.watchOpts = append(o.watchOpts, opts...)
	}
}

// FetchOption configures a single Fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	releaseKey string
	cluster    string
	query      url.Values
}

// WithReleaseKey passes the release key the caller already holds. When it is
// still current, Fetch returns source.ErrNotModified.
func WithReleaseKey(key string) FetchOption {
	return func(o *fetchOptions) {
		o.releaseKey = key
	}
}

// WithFetchCluster overrides the client's cluster for one fetch.
func WithFetchCluster(cluster string) FetchOption {
	return func(o *fetchOptions) {
		o.cluster = cluster
	}
}

// WithQuery adds query parameters, such as label or dataCenter, to one fetch.
// Parameters the client sets itself take precedence.
func WithQuery(q url.Values) FetchOption {
	return func(o *fetchOptions) {
		o.query = q
	}
}
