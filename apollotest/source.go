package apollotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

// SourceFactory creates the Source under test for a server URL.
type SourceFactory func(t *testing.T, serverURL string) source.Source

// SourceTester verifies that a source.Source implementation talks to the
// config service correctly.
type SourceTester struct {
	t       *testing.T
	factory SourceFactory
}

// NewSourceTester creates a SourceTester for the given SourceFactory.
// Every test starts its own Server.
func NewSourceTester(t *testing.T, factory SourceFactory) *SourceTester {
	return &SourceTester{t: t, factory: factory}
}

// TestAll runs all standard compliance tests.
func (st *SourceTester) TestAll() {
	st.t.Run("FetchNamespace", st.testFetchNamespace)
	st.t.Run("FetchNotFound", st.testFetchNotFound)
	st.t.Run("FetchReleaseKey", st.testFetchReleaseKey)
	st.t.Run("NotificationsChanged", st.testNotificationsChanged)
	st.t.Run("NotificationsNotModified", st.testNotificationsNotModified)
	st.t.Run("NotificationsTimeout", st.testNotificationsTimeout)
}

func (st *SourceTester) setup(t *testing.T, opts ...ServerOption) (*Server, source.Source) {
	t.Helper()
	srv := NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv, st.factory(t, srv.URL)
}

func (st *SourceTester) testFetchNamespace(t *testing.T) {
	srv, src := st.setup(t)
	srv.Publish("SampleApp", "", "application", map[string]string{"timeout": "100"})

	cfg, err := src.FetchNamespace(context.Background(), source.FetchRequest{
		AppID: "SampleApp", Cluster: source.DefaultCluster, Namespace: "application",
	})
	if err != nil {
		t.Fatalf("FetchNamespace() error = %v", err)
	}
	if cfg.NamespaceName != "application" || cfg.AppID != "SampleApp" || cfg.Cluster != source.DefaultCluster {
		t.Errorf("FetchNamespace() = %+v", cfg)
	}
	if cfg.Configurations["timeout"] != "100" {
		t.Errorf("configurations = %v", cfg.Configurations)
	}
	if cfg.ReleaseKey == "" {
		t.Error("release key is empty")
	}
}

func (st *SourceTester) testFetchNotFound(t *testing.T) {
	srv, src := st.setup(t)
	srv.Publish("SampleApp", "", "application", nil)

	_, err := src.FetchNamespace(context.Background(), source.FetchRequest{
		AppID: "SampleApp", Cluster: source.DefaultCluster, Namespace: "missing",
	})
	if !errors.Is(err, source.ErrNamespaceNotFound) {
		t.Errorf("missing namespace error = %v, want ErrNamespaceNotFound", err)
	}

	_, err = src.FetchNamespace(context.Background(), source.FetchRequest{
		AppID: "OtherApp", Cluster: source.DefaultCluster, Namespace: "application",
	})
	if !errors.Is(err, source.ErrAppNotFound) {
		t.Errorf("missing app error = %v, want ErrAppNotFound", err)
	}
	if source.IsRetryable(err) {
		t.Error("not found reported as retryable")
	}
}

func (st *SourceTester) testFetchReleaseKey(t *testing.T) {
	srv, src := st.setup(t)
	srv.Publish("SampleApp", "", "application", map[string]string{"a": "1"})

	req := source.FetchRequest{AppID: "SampleApp", Cluster: source.DefaultCluster, Namespace: "application"}
	cfg, err := src.FetchNamespace(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchNamespace() error = %v", err)
	}

	req.ReleaseKey = cfg.ReleaseKey
	if _, err := src.FetchNamespace(context.Background(), req); !errors.Is(err, source.ErrNotModified) {
		t.Errorf("FetchNamespace(current release key) error = %v, want ErrNotModified", err)
	}
}

func (st *SourceTester) testNotificationsChanged(t *testing.T) {
	srv, src := st.setup(t)
	srv.Publish("SampleApp", "", "application", nil)
	want := srv.NotificationID("SampleApp", "", "application")

	got, err := src.CheckNotifications(context.Background(), source.NotifyRequest{
		AppID:         "SampleApp",
		Cluster:       source.DefaultCluster,
		Notifications: []notification.Entry{{NamespaceName: "application", NotificationID: notification.UninitializedID}},
		Timeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("CheckNotifications() error = %v", err)
	}
	if len(got) != 1 || got[0].NamespaceName != "application" || got[0].NotificationID != want {
		t.Errorf("CheckNotifications() = %+v, want application=%d", got, want)
	}
}

func (st *SourceTester) testNotificationsNotModified(t *testing.T) {
	srv, src := st.setup(t, WithHoldTimeout(20*time.Millisecond))
	srv.Publish("SampleApp", "", "application", nil)
	id := srv.NotificationID("SampleApp", "", "application")

	_, err := src.CheckNotifications(context.Background(), source.NotifyRequest{
		AppID:         "SampleApp",
		Cluster:       source.DefaultCluster,
		Notifications: []notification.Entry{{NamespaceName: "application", NotificationID: id}},
		Timeout:       5 * time.Second,
	})
	if !errors.Is(err, source.ErrNotModified) {
		t.Errorf("CheckNotifications() error = %v, want ErrNotModified", err)
	}
}

func (st *SourceTester) testNotificationsTimeout(t *testing.T) {
	srv, src := st.setup(t, WithHoldTimeout(time.Minute))
	srv.Publish("SampleApp", "", "application", nil)
	id := srv.NotificationID("SampleApp", "", "application")

	_, err := src.CheckNotifications(context.Background(), source.NotifyRequest{
		AppID:         "SampleApp",
		Cluster:       source.DefaultCluster,
		Notifications: []notification.Entry{{NamespaceName: "application", NotificationID: id}},
		Timeout:       50 * time.Millisecond,
	})
	if !errors.Is(err, source.ErrPollTimeout) {
		t.Errorf("CheckNotifications() error = %v, want ErrPollTimeout", err)
	}
}
