// Package configservice implements the config service HTTP API.
//
// Client satisfies source.Source and additionally exposes the cached
// configfiles endpoint.
package configservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

// Client talks to one config service.
type Client struct {
	base         *url.URL
	httpClient   *http.Client
	secret       string
	fetchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Ensure Client implements the source.Source interface.
var _ source.Source = (*Client)(nil)

// New creates a Client for the service at serverURL, e.g. "http://localhost:8080".
//
// Example:
//
//	c, err := configservice.New("http://apollo:8080", configservice.WithAccessKey(secret))
func New(serverURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", serverURL)
	}

	c := &Client{
		base:         base,
		httpClient:   http.DefaultClient,
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c, nil
}

// CheckNotifications implements the source.NotificationChecker interface.
func (c *Client) CheckNotifications(ctx context.Context, req source.NotifyRequest) ([]notification.Entry, error) {
	entries := req.Notifications
	if entries == nil {
		entries = []notification.Entry{}
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notifications: %w", err)
	}

	q := url.Values{}
	q.Set("appId", req.AppID)
	q.Set("cluster", clusterOrDefault(req.Cluster))
	q.Set("notifications", string(encoded))
	if req.IP != "" {
		q.Set("ip", req.IP)
	}
	addExtra(q, req.Extra)

	pollCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body, err := c.get(pollCtx, req.AppID, "/notifications/v2", q)
	if err != nil {
		if ctx.Err() == nil && isTimeout(err) {
			return nil, fmt.Errorf("%w after %s", source.ErrPollTimeout, req.Timeout)
		}
		return nil, err
	}

	var changed []notification.Entry
	if err := json.Unmarshal(body, &changed); err != nil {
		return nil, &source.DecodeError{Err: err}
	}
	return changed, nil
}

// FetchNamespace implements the source.NamespaceFetcher interface.
func (c *Client) FetchNamespace(ctx context.Context, req source.FetchRequest) (*source.Config, error) {
	q := url.Values{}
	if req.IP != "" {
		q.Set("ip", req.IP)
	}
	if req.ReleaseKey != "" {
		q.Set("releaseKey", req.ReleaseKey)
	}
	addExtra(q, req.Extra)

	ctx, cancel := c.withFetchTimeout(ctx)
	defer cancel()

	body, err := c.get(ctx, req.AppID, namespacePath("configs", req.AppID, req.Cluster, req.Namespace), q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch namespace %s: %w", req.Namespace, err)
	}

	var cfg source.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, &source.DecodeError{Namespace: req.Namespace, Err: err}
	}
	if cfg.Configurations == nil {
		cfg.Configurations = map[string]string{}
	}
	return &cfg, nil
}

// FetchCached returns the configurations of a namespace from the service's
// cache. The result may lag the latest release by up to a second and carries
// no release key.
func (c *Client) FetchCached(ctx context.Context, req source.FetchRequest) (map[string]string, error) {
	q := url.Values{}
	if req.IP != "" {
		q.Set("ip", req.IP)
	}
	addExtra(q, req.Extra)

	ctx, cancel := c.withFetchTimeout(ctx)
	defer cancel()

	body, err := c.get(ctx, req.AppID, namespacePath("configfiles/json", req.AppID, req.Cluster, req.Namespace), q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cached namespace %s: %w", req.Namespace, err)
	}

	configs := map[string]string{}
	if err := json.Unmarshal(body, &configs); err != nil {
		return nil, &source.DecodeError{Namespace: req.Namespace, Err: err}
	}
	return configs, nil
}

func (c *Client) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.fetchTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.fetchTimeout)
}

// get performs a signed GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, appID, path string, q url.Values) ([]byte, error) {
	target := c.base.String() + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.secret != "" {
		sign(req, appID, c.secret, c.now())
	}

	c.logger.Debug("config service request", "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return body, nil
	case http.StatusNotModified:
		return nil, source.ErrNotModified
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound(body)
	}
	return nil, &source.ResponseError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// namespacePath builds "/{kind}/{app}/{cluster}/{namespace}" with each
// segment escaped.
func namespacePath(kind, appID, cluster, namespace string) string {
	return "/" + kind +
		"/" + url.PathEscape(appID) +
		"/" + url.PathEscape(clusterOrDefault(cluster)) +
		"/" + url.PathEscape(namespace)
}

// addExtra appends extra parameters to q. Parameters the client sets itself
// are never overridden.
func addExtra(q, extra url.Values) {
	for k, vs := range extra {
		if q.Has(k) {
			continue
		}
		for _, v := range vs {
			q.Add(k, v)
		}
	}
}

func clusterOrDefault(cluster string) string {
	if cluster == "" {
		return source.DefaultCluster
	}
	return cluster
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
