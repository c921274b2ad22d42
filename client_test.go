package apollo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmjoy/apollo-client/apollotest"
	"github.com/jmjoy/apollo-client/clientip"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/watcher"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *apollotest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithWatchOptions(
			watcher.WithInitialPollTimeout(500*time.Millisecond),
			watcher.WithLongPollTimeout(5*time.Second),
		),
	}, opts...)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func nextBatch(t *testing.T, ch <-chan Batch) Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatal("channel closed, want batch")
		}
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
	return Batch{}
}

func TestClient_WatchEndToEnd(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	srv.Publish("SampleApp", "", "application", map[string]string{"timeout": "100"})
	srv.Publish("SampleApp", "", "datasource.yml", map[string]string{"content": "url: jdbc:a\n"})

	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Watch(ctx, WatchRequest{AppID: "SampleApp", Namespaces: []string{"application", "datasource.yml"}})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	first := nextBatch(t, ch)
	if len(first.Results) != 2 {
		t.Fatalf("first batch has %d results, want 2", len(first.Results))
	}
	if v, _ := first.Results["application"].Config.Value("timeout"); v != "100" {
		t.Errorf("timeout = %q, want 100", v)
	}

	// Wait for the session to learn the current ids before publishing.
	deadline := time.Now().Add(5 * time.Second)
	for srv.CountRequests("/notifications/v2") < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	srv.Publish("SampleApp", "", "application", map[string]string{"timeout": "200"})

	second := nextBatch(t, ch)
	if len(second.Results) != 1 {
		t.Fatalf("second batch = %+v, want only application", second)
	}
	if v, _ := second.Results["application"].Config.Value("timeout"); v != "200" {
		t.Errorf("timeout = %q, want 200", v)
	}

	var ds struct {
		URL string `yaml:"url"`
	}
	if err := first.Results["datasource.yml"].Config.Decode(&ds); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ds.URL != "jdbc:a" {
		t.Errorf("url = %q", ds.URL)
	}
	if n := srv.CountRequests("/configs/SampleApp/default/datasource.yml"); n != 1 {
		t.Errorf("datasource.yml fetched %d times, want 1", n)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received batch after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestClient_WatchInvalid(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv)

	if _, err := c.Watch(context.Background(), WatchRequest{AppID: "SampleApp"}); !errors.Is(err, ErrNoNamespaces) {
		t.Errorf("Watch() error = %v, want ErrNoNamespaces", err)
	}
	if _, err := c.Watch(context.Background(), WatchRequest{Namespaces: []string{"a"}}); !errors.Is(err, ErrNoAppID) {
		t.Errorf("Watch() error = %v, want ErrNoAppID", err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("requests sent for invalid watch: %v", srv.Requests())
	}
}

func TestClient_Fetch(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	srv.Publish("SampleApp", "prod", "application", map[string]string{"a": "1"})

	c := newTestClient(t, srv, WithCluster("prod"), WithClientIP(clientip.Custom("10.0.0.9")))

	cfg, err := c.Fetch(context.Background(), "SampleApp", "application")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if cfg.Cluster != "prod" {
		t.Errorf("cluster = %q, want prod", cfg.Cluster)
	}

	_, err = c.Fetch(context.Background(), "SampleApp", "application", WithReleaseKey(cfg.ReleaseKey))
	if !errors.Is(err, source.ErrNotModified) {
		t.Errorf("Fetch(current key) error = %v, want ErrNotModified", err)
	}

	_, err = c.Fetch(context.Background(), "SampleApp", "application", WithFetchCluster("default"))
	if !errors.Is(err, source.ErrNamespaceNotFound) {
		t.Errorf("Fetch(other cluster) error = %v, want ErrNamespaceNotFound", err)
	}

	for _, r := range srv.Requests() {
		if r.Query["ip"] != "10.0.0.9" {
			t.Errorf("request %s ip = %q, want 10.0.0.9", r.Path, r.Query["ip"])
		}
	}

	cached, err := c.FetchCached(context.Background(), "SampleApp", "application")
	if err != nil {
		t.Fatalf("FetchCached() error = %v", err)
	}
	if cached["a"] != "1" {
		t.Errorf("FetchCached() = %v", cached)
	}

	if _, err := c.Fetch(context.Background(), "", "application"); !errors.Is(err, ErrNoAppID) {
		t.Errorf("Fetch(no app) error = %v, want ErrNoAppID", err)
	}
}

func TestClient_FetchAll(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	srv.Publish("SampleApp", "", "a", nil)
	srv.Publish("SampleApp", "", "b", nil)

	c := newTestClient(t, srv)
	got, err := c.FetchAll(context.Background(), WatchRequest{AppID: "SampleApp", Namespaces: []string{"a", "b", "a", "missing"}})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("FetchAll() returned %d results, want 3", len(got))
	}
	if got["a"].Err != nil || got["b"].Err != nil {
		t.Errorf("unexpected errors: a=%v b=%v", got["a"].Err, got["b"].Err)
	}
	if !errors.Is(got["missing"].Err, source.ErrNamespaceNotFound) {
		t.Errorf("missing error = %v", got["missing"].Err)
	}
	if n := srv.CountRequests("/configs/SampleApp/default/a"); n != 1 {
		t.Errorf("a fetched %d times, want 1", n)
	}
}

type staticResolver struct{}

func (staticResolver) Hostname() (string, error) { return "build-host", nil }
func (staticResolver) Addrs() ([]netip.Addr, error) {
	return []netip.Addr{netip.MustParseAddr("10.2.0.1")}, nil
}

func TestClient_IP(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv, WithClientIP(clientip.HostName()), WithResolver(staticResolver{}))
	if c.IP() != "build-host" {
		t.Errorf("IP() = %q, want build-host", c.IP())
	}

	wr, err := c.watcherRequest(WatchRequest{AppID: "a", Namespaces: []string{"n"}, IP: clientip.HostIP()})
	if err != nil {
		t.Fatalf("watcherRequest() error = %v", err)
	}
	if wr.IP != "10.2.0.1" || wr.Cluster != source.DefaultCluster {
		t.Errorf("watcherRequest() = %+v", wr)
	}

	plain := newTestClient(t, srv)
	if plain.IP() != "" {
		t.Errorf("IP() without WithClientIP = %q, want empty", plain.IP())
	}
}

func TestNew_InvalidServerURL(t *testing.T) {
	if _, err := New("not a url"); err == nil {
		t.Error("New() expected error")
	}
}

func TestNew_NilLogger(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	srv.Publish("SampleApp", "", "application", map[string]string{"k": "v"})

	c, err := New(srv.URL, WithLogger(nil), WithResolver(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := c.Fetch(context.Background(), "SampleApp", "application")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := cfg.Configurations["k"]; got != "v" {
		t.Errorf("k = %q, want v", got)
	}
}

func TestClient_Query(t *testing.T) {
	srv := apollotest.NewServer()
	defer srv.Close()
	srv.Publish("SampleApp", "", "application", map[string]string{"k": "v"})

	c := newTestClient(t, srv)
	query := url.Values{"label": {"canary"}}
	ctx := context.Background()

	if _, err := c.Fetch(ctx, "SampleApp", "application", WithQuery(query)); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := c.FetchCached(ctx, "SampleApp", "application", WithQuery(query)); err != nil {
		t.Fatalf("FetchCached() error = %v", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := c.Watch(watchCtx, WatchRequest{AppID: "SampleApp", Namespaces: []string{"application"}, Query: query})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	nextBatch(t, ch)

	deadline := time.Now().Add(5 * time.Second)
	for srv.CountRequests("/notifications/v2") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	seen := map[string]bool{}
	for _, r := range srv.Requests() {
		if got := r.Query["label"]; got != "canary" {
			t.Errorf("%s: label = %q, want canary", r.Path, got)
		}
		seen[strings.SplitN(strings.TrimPrefix(r.Path, "/"), "/", 2)[0]] = true
	}
	for _, endpoint := range []string{"configs", "configfiles", "notifications"} {
		if !seen[endpoint] {
			t.Errorf("no %s request recorded", endpoint)
		}
	}
}
