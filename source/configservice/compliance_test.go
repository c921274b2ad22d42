package configservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmjoy/apollo-client/apollotest"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/source/configservice"
)

func newSource(t *testing.T, serverURL string) source.Source {
	t.Helper()
	c, err := configservice.New(serverURL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClient_Compliance(t *testing.T) {
	apollotest.NewSourceTester(t, newSource).TestAll()
}

func TestClient_AccessKeyAccepted(t *testing.T) {
	srv := apollotest.NewServer(apollotest.WithAccessKey("SampleApp", "s3cret"))
	defer srv.Close()
	srv.Publish("SampleApp", "", "application", map[string]string{"a": "1"})

	unsigned, err := configservice.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = unsigned.FetchNamespace(context.Background(), source.FetchRequest{AppID: "SampleApp", Namespace: "application"})
	var re *source.ResponseError
	if !errors.As(err, &re) || re.Status != 401 {
		t.Fatalf("unsigned FetchNamespace() error = %v, want 401", err)
	}

	signed, err := configservice.New(srv.URL, configservice.WithAccessKey("s3cret"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := signed.FetchNamespace(context.Background(), source.FetchRequest{
		AppID: "SampleApp", Namespace: "application", IP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("signed FetchNamespace() error = %v", err)
	}
	if cfg.Configurations["a"] != "1" {
		t.Errorf("configurations = %v", cfg.Configurations)
	}
}
