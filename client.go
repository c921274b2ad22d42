package apollo

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/jmjoy/apollo-client/clientip"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/source/configservice"
	"github.com/jmjoy/apollo-client/watcher"
)

// Request validation errors.
var (
	ErrNoAppID      = watcher.ErrNoAppID
	ErrNoNamespaces = watcher.ErrNoNamespaces
)

// Batch is one item delivered by Watch.
type Batch = watcher.Batch

// Result is the outcome of fetching one namespace.
type Result = watcher.Result

// Client fetches and watches namespaces of one config service.
// A Client is safe for concurrent use.
type Client struct {
	service   *configservice.Client
	cluster   string
	ip        string
	resolver  clientip.Resolver
	logger    *slog.Logger
	watchOpts []watcher.Option
}

// New creates a Client for the config service at serverURL.
//
// Example:
//
//	client, err := apollo.New("http://localhost:8080",
//	    apollo.WithCluster("prod"),
//	    apollo.WithClientIP(clientip.HostIP()),
//	)
func New(serverURL string, opts ...Option) (*Client, error) {
	o := options{
		cluster:  source.DefaultCluster,
		resolver: clientip.System,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.resolver == nil {
		o.resolver = clientip.System
	}

	svcOpts := []configservice.Option{configservice.WithLogger(o.logger)}
	if o.httpClient != nil {
		svcOpts = append(svcOpts, configservice.WithHTTPClient(o.httpClient))
	}
	if o.secret != "" {
		svcOpts = append(svcOpts, configservice.WithAccessKey(o.secret))
	}
	if o.fetchTimeout > 0 {
		svcOpts = append(svcOpts, configservice.WithFetchTimeout(o.fetchTimeout))
	}

	svc, err := configservice.New(serverURL, svcOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		service:   svc,
		cluster:   o.cluster,
		ip:        o.ip.ResolveWith(o.resolver),
		resolver:  o.resolver,
		logger:    o.logger,
		watchOpts: o.watchOpts,
	}, nil
}

// Source returns the underlying config service implementation.
func (c *Client) Source() source.Source {
	return c.service
}

// IP returns the resolved client identity, or "" when none is configured.
func (c *Client) IP() string {
	return c.ip
}

// Fetch returns the latest release of one namespace.
func (c *Client) Fetch(ctx context.Context, appID, namespace string, opts ...FetchOption) (*source.Config, error) {
	if appID == "" {
		return nil, ErrNoAppID
	}
	fo := c.fetchOptions(opts)
	return c.service.FetchNamespace(ctx, source.FetchRequest{
		AppID:      appID,
		Cluster:    fo.cluster,
		Namespace:  namespace,
		IP:         c.ip,
		ReleaseKey: fo.releaseKey,
		Extra:      fo.query,
	})
}

// FetchCached returns the configurations of one namespace from the service's
// cache, which may lag the latest release slightly. WithReleaseKey is ignored.
func (c *Client) FetchCached(ctx context.Context, appID, namespace string, opts ...FetchOption) (map[string]string, error) {
	if appID == "" {
		return nil, ErrNoAppID
	}
	fo := c.fetchOptions(opts)
	return c.service.FetchCached(ctx, source.FetchRequest{
		AppID:     appID,
		Cluster:   fo.cluster,
		Namespace: namespace,
		IP:        c.ip,
		Extra:     fo.query,
	})
}

func (c *Client) fetchOptions(opts []FetchOption) fetchOptions {
	fo := fetchOptions{cluster: c.cluster}
	for _, opt := range opts {
		opt(&fo)
	}
	return fo
}

// FetchAll fetches several namespaces concurrently. Duplicate namespaces are
// fetched once.
func (c *Client) FetchAll(ctx context.Context, req WatchRequest) (map[string]Result, error) {
	wr, err := c.watcherRequest(req)
	if err != nil {
		return nil, err
	}
	names := uniq(wr.Namespaces)
	return watcher.NewFetcher(c.service, wr).Fetch(ctx, names), nil
}

// WatchRequest selects what to watch.
type WatchRequest struct {
	AppID      string
	Namespaces []string

	// Cluster overrides the client's cluster.
	Cluster string

	// IP overrides the client's identity for this watch.
	IP clientip.Value

	// Query holds additional parameters sent with every request of the watch,
	// such as label or dataCenter.
	Query url.Values
}

// Watcher starts watch sessions.
type Watcher interface {
	Watch(ctx context.Context, req WatchRequest) (<-chan Batch, error)
}

// Ensure Client implements the Watcher interface.
var _ Watcher = (*Client)(nil)

// Watch starts a new watch session and returns its batches.
//
// The first batch holds every requested namespace. Later batches hold only the
// namespaces that changed, or a single Err when a notification check failed.
// The channel is closed when ctx is canceled. Requests without an app id or
// namespaces fail immediately.
func (c *Client) Watch(ctx context.Context, req WatchRequest) (<-chan Batch, error) {
	wr, err := c.watcherRequest(req)
	if err != nil {
		return nil, err
	}
	opts := append([]watcher.Option{watcher.WithLogger(c.logger)}, c.watchOpts...)
	return watcher.Watch(ctx, c.service, wr, opts...)
}

func (c *Client) watcherRequest(req WatchRequest) (watcher.Request, error) {
	wr := watcher.Request{
		AppID:      req.AppID,
		Cluster:    req.Cluster,
		Namespaces: req.Namespaces,
		IP:         c.ip,
		Query:      req.Query,
	}
	if wr.Cluster == "" {
		wr.Cluster = c.cluster
	}
	if !req.IP.IsZero() {
		wr.IP = req.IP.ResolveWith(c.resolver)
	}
	if err := wr.Validate(); err != nil {
		return watcher.Request{}, err
	}
	return wr, nil
}

func uniq(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
