package watcher_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/watcher"
)

// barrierFetcher blocks every fetch until n fetches are in flight.
type barrierFetcher struct {
	n       int
	mu      sync.Mutex
	started int
	all     chan struct{}
}

func (b *barrierFetcher) FetchNamespace(ctx context.Context, req source.FetchRequest) (*source.Config, error) {
	b.mu.Lock()
	b.started++
	if b.started == b.n {
		close(b.all)
	}
	b.mu.Unlock()

	select {
	case <-b.all:
	case <-time.After(time.Second):
		return nil, errors.New("fetches did not run concurrently")
	}
	if req.Namespace == "bad" {
		return nil, &source.NotFoundError{Resource: source.ResourceNamespace}
	}
	return &source.Config{NamespaceName: req.Namespace, Cluster: req.Cluster}, nil
}

func TestFetcher_Concurrent(t *testing.T) {
	namespaces := []string{"a", "b", "bad", "c"}
	bf := &barrierFetcher{n: len(namespaces), all: make(chan struct{})}
	f := watcher.NewFetcher(bf, watcher.Request{AppID: "SampleApp"})

	got := f.Fetch(context.Background(), namespaces)

	if len(got) != len(namespaces) {
		t.Fatalf("Fetch() returned %d results, want %d", len(got), len(namespaces))
	}
	for _, ns := range []string{"a", "b", "c"} {
		r := got[ns]
		if r.Err != nil {
			t.Errorf("%s: error = %v", ns, r.Err)
			continue
		}
		if r.Config.NamespaceName != ns || r.Config.Cluster != source.DefaultCluster {
			t.Errorf("%s: config = %+v", ns, r.Config)
		}
	}
	if !errors.Is(got["bad"].Err, source.ErrNamespaceNotFound) || got["bad"].Config != nil {
		t.Errorf("bad: result = %+v, want ErrNamespaceNotFound", got["bad"])
	}
}

func TestFetcher_Empty(t *testing.T) {
	f := watcher.NewFetcher(newFakeSource(), watcher.Request{AppID: "SampleApp"})
	if got := f.Fetch(context.Background(), nil); len(got) != 0 {
		t.Errorf("Fetch(nil) = %v, want empty", got)
	}
}

type fetcherFunc func(ctx context.Context, req source.FetchRequest) (*source.Config, error)

func (f fetcherFunc) FetchNamespace(ctx context.Context, req source.FetchRequest) (*source.Config, error) {
	return f(ctx, req)
}

func TestFetcher_SendsRequestFields(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []source.FetchRequest
	)
	ff := fetcherFunc(func(_ context.Context, req source.FetchRequest) (*source.Config, error) {
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, req)
		return &source.Config{NamespaceName: req.Namespace}, nil
	})

	query := url.Values{"label": {"canary"}}
	f := watcher.NewFetcher(ff, watcher.Request{AppID: "SampleApp", Cluster: "prod", IP: "10.0.0.1", Query: query})
	f.Fetch(context.Background(), []string{"application"})

	want := []source.FetchRequest{{
		AppID:     "SampleApp",
		Cluster:   "prod",
		Namespace: "application",
		IP:        "10.0.0.1",
		Extra:     query,
	}}
	if diff := cmp.Diff(want, reqs); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}
