package watcher_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/watcher"
)

// checkFunc answers one notification check.
type checkFunc func(ctx context.Context, req source.NotifyRequest) ([]notification.Entry, error)

// fakeSource replays scripted notification answers and serves namespaces
// from memory. Once the script is exhausted, checks block until canceled.
type fakeSource struct {
	mu       sync.Mutex
	script   []checkFunc
	checks   []source.NotifyRequest
	fetches  map[string]int
	configs  map[string]*source.Config
	failures map[string]error
}

func newFakeSource(namespaces ...string) *fakeSource {
	f := &fakeSource{
		fetches:  map[string]int{},
		configs:  map[string]*source.Config{},
		failures: map[string]error{},
	}
	for _, ns := range namespaces {
		f.configs[ns] = &source.Config{
			AppID:          "SampleApp",
			Cluster:        "default",
			NamespaceName:  ns,
			Configurations: map[string]string{"key": ns},
			ReleaseKey:     "r1",
		}
	}
	return f
}

func (f *fakeSource) then(fns ...checkFunc) *fakeSource {
	f.script = append(f.script, fns...)
	return f
}

func (f *fakeSource) CheckNotifications(ctx context.Context, req source.NotifyRequest) ([]notification.Entry, error) {
	f.mu.Lock()
	n := len(f.checks)
	f.checks = append(f.checks, req)
	var fn checkFunc
	if n < len(f.script) {
		fn = f.script[n]
	}
	f.mu.Unlock()

	if fn == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return fn(ctx, req)
}

func (f *fakeSource) FetchNamespace(ctx context.Context, req source.FetchRequest) (*source.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[req.Namespace]++
	if err, ok := f.failures[req.Namespace]; ok {
		return nil, err
	}
	cfg, ok := f.configs[req.Namespace]
	if !ok {
		return nil, &source.NotFoundError{Resource: source.ResourceNamespace}
	}
	cp := *cfg
	return &cp, nil
}

func (f *fakeSource) checkRequests() []source.NotifyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.NotifyRequest(nil), f.checks...)
}

func (f *fakeSource) fetchCount(ns string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[ns]
}

func changed(entries ...notification.Entry) checkFunc {
	return func(context.Context, source.NotifyRequest) ([]notification.Entry, error) {
		return entries, nil
	}
}

func fail(err error) checkFunc {
	return func(context.Context, source.NotifyRequest) ([]notification.Entry, error) {
		return nil, err
	}
}

// waitTimeout blocks until the check's timeout elapses, as a held long poll does.
func waitTimeout(ctx context.Context, req source.NotifyRequest) ([]notification.Entry, error) {
	t := time.NewTimer(req.Timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return nil, source.ErrPollTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func entry(ns string, id int64) notification.Entry {
	return notification.Entry{NamespaceName: ns, NotificationID: id}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() []watcher.Option {
	return []watcher.Option{
		watcher.WithInitialPollTimeout(20 * time.Millisecond),
		watcher.WithLongPollTimeout(time.Minute),
		watcher.WithLogger(quietLogger()),
	}
}

func receive(t *testing.T, ch <-chan watcher.Batch) watcher.Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatal("channel closed, want batch")
		}
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
	return watcher.Batch{}
}

func expectNoBatch(t *testing.T, ch <-chan watcher.Batch, wait time.Duration) {
	t.Helper()
	select {
	case b, ok := <-ch:
		if ok {
			t.Fatalf("unexpected batch: %+v", b)
		}
		t.Fatal("channel closed unexpectedly")
	case <-time.After(wait):
	}
}

func expectClosed(t *testing.T, ch <-chan watcher.Batch) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received batch, want closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

// waitForChecks waits until at least n checks have been issued.
func waitForChecks(t *testing.T, f *fakeSource, n int) []source.NotifyRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reqs := f.checkRequests(); len(reqs) >= n {
			return reqs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("waited for %d checks, got %d", n, len(f.checkRequests()))
	return nil
}
