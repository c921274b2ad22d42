package watcher

import (
	"context"
	"net/url"

	"github.com/jmjoy/apollo-client/source"
	"golang.org/x/sync/errgroup"
)

// Fetcher fetches several namespaces concurrently.
type Fetcher struct {
	fetcher source.NamespaceFetcher
	appID   string
	cluster string
	ip      string
	query   url.Values
}

// NewFetcher creates a Fetcher for the app, cluster and identity of req.
func NewFetcher(fetcher source.NamespaceFetcher, req Request) *Fetcher {
	return &Fetcher{
		fetcher: fetcher,
		appID:   req.AppID,
		cluster: req.cluster(),
		ip:      req.IP,
		query:   req.Query,
	}
}

// Fetch fetches every namespace in its own goroutine and waits for all of
// them. A failed namespace is recorded in its own Result and does not cancel
// the others.
//
// The result has one entry per distinct namespace.
func (f *Fetcher) Fetch(ctx context.Context, namespaces []string) map[string]Result {
	results := make([]Result, len(namespaces))

	var g errgroup.Group
	for i, ns := range namespaces {
		g.Go(func() error {
			cfg, err := f.fetcher.FetchNamespace(ctx, source.FetchRequest{
				AppID:     f.appID,
				Cluster:   f.cluster,
				Namespace: ns,
				IP:        f.ip,
				Extra:     f.query,
			})
			if err != nil {
				results[i] = Result{Err: err}
			} else {
				results[i] = Result{Config: cfg}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(namespaces))
	for i, ns := range namespaces {
		out[ns] = results[i]
	}
	return out
}
