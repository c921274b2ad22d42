package settings

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmjoy/apollo-client/logger"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func resolve(t *testing.T, args []string, getenv func(string) string) (Settings, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := Bind(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return Resolve(fs, f, getenv)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apollo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolve_Precedence(t *testing.T) {
	file := writeFile(t, `
server: http://file:8080
cluster: file-cluster
namespaces: [a, b.json]
pollTimeout: 30s
`)

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want Settings
	}{
		{
			name: "defaults",
			args: []string{"-server", "http://flag", "-app", "demo"},
			want: Settings{
				Server:     "http://flag",
				AppID:      "demo",
				Cluster:    "default",
				Namespaces: []string{"application"},
				Format:     FormatText,
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"APOLLO_SERVER":            "http://env",
				"APOLLO_APP_ID":            "env-app",
				"APOLLO_CLUSTER":           "env-cluster",
				"APOLLO_NAMESPACES":        "x, y,,",
				"APOLLO_IP":                "10.0.0.1",
				"APOLLO_ACCESS_KEY_SECRET": "s3cret",
			},
			want: Settings{
				Server:     "http://env",
				AppID:      "env-app",
				Cluster:    "env-cluster",
				Namespaces: []string{"x", "y"},
				IP:         "10.0.0.1",
				Secret:     "s3cret",
				Format:     FormatText,
			},
		},
		{
			name: "file overrides environment",
			args: []string{"-config", file},
			env:  map[string]string{"APOLLO_SERVER": "http://env", "APOLLO_APP_ID": "env-app"},
			want: Settings{
				Server:      "http://file:8080",
				AppID:       "env-app",
				Cluster:     "file-cluster",
				Namespaces:  []string{"a", "b.json"},
				Format:      FormatText,
				PollTimeout: 30 * time.Second,
			},
		},
		{
			name: "flags override file",
			args: []string{"-config", file, "-app", "flag-app", "-cluster", "", "-ns", "c", "-format", "json", "-show-secrets"},
			want: Settings{
				Server:      "http://file:8080",
				AppID:       "flag-app",
				Cluster:     "",
				Namespaces:  []string{"c"},
				Format:      FormatJSON,
				ShowSecrets: true,
				PollTimeout: 30 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, tt.args, env(tt.env))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr []string
	}{
		{
			name:    "missing server and app",
			wantErr: []string{"-server is required", "-app is required"},
		},
		{
			name:    "bad format",
			args:    []string{"-server", "http://x", "-app", "a", "-format", "xml"},
			wantErr: []string{`unknown format "xml"`},
		},
		{
			name:    "bad cidr",
			args:    []string{"-server", "http://x", "-app", "a", "-ip", "cidr:nope"},
			wantErr: []string{"nope"},
		},
		{
			name:    "missing settings file",
			args:    []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")},
			wantErr: []string{"failed to read settings file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, tt.args, env(nil))
			if err == nil {
				t.Fatal("Resolve() error = nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestResolve_InvalidFile(t *testing.T) {
	file := writeFile(t, "server: [unclosed")
	_, err := resolve(t, []string{"-config", file}, env(nil))
	if err == nil || !strings.Contains(err.Error(), "failed to parse settings file") {
		t.Errorf("Resolve() error = %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b.yaml ,, c ", []string{"a", "b.yaml", "c"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitList(tt.in)); diff != "" {
			t.Errorf("SplitList(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestSettings_NewClient(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard}, env(nil))

	s := Settings{Server: "http://localhost:8080", AppID: "a", Cluster: "c", IP: "10.1.1.1", Secret: "k", PollTimeout: time.Second}
	client, err := s.NewClient(log)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if got := client.IP(); got != "10.1.1.1" {
		t.Errorf("IP() = %q, want 10.1.1.1", got)
	}

	req := s.Request()
	if req.AppID != "a" || req.Cluster != "c" {
		t.Errorf("Request() = %+v", req)
	}

	if _, err := (Settings{Server: "ftp://nope"}).NewClient(log); err == nil {
		t.Error("NewClient(ftp) error = nil")
	}
}
