// Package settings resolves the connection settings shared by the apollo
// subcommands from flags, a YAML settings file and APOLLO_* environment
// variables.
package settings

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jmjoy/apollo-client"
	"github.com/jmjoy/apollo-client/clientip"
	"github.com/jmjoy/apollo-client/source"
	"github.com/jmjoy/apollo-client/watcher"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Settings is the resolved configuration of one command run.
type Settings struct {
	Server      string        `yaml:"server"`
	AppID       string        `yaml:"app"`
	Cluster     string        `yaml:"cluster"`
	Namespaces  []string      `yaml:"namespaces"`
	IP          string        `yaml:"ip"`
	Secret      string        `yaml:"secret"`
	Format      string        `yaml:"format"`
	ShowSecrets bool          `yaml:"showSecrets"`
	PollTimeout time.Duration `yaml:"pollTimeout"`
}

// Flags holds the raw command-line values.
type Flags struct {
	Config      string
	Server      string
	AppID       string
	Cluster     string
	Namespaces  string
	IP          string
	Secret      string
	Format      string
	ShowSecrets bool
	PollTimeout time.Duration
}

// Bind registers the shared flags on fs.
func Bind(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "YAML settings file")
	fs.StringVar(&f.Server, "server", "", "config service URL (env APOLLO_SERVER)")
	fs.StringVar(&f.AppID, "app", "", "application id (env APOLLO_APP_ID)")
	fs.StringVar(&f.Cluster, "cluster", "", "cluster name (env APOLLO_CLUSTER, default \"default\")")
	fs.StringVar(&f.Namespaces, "ns", "", "comma-separated namespaces (env APOLLO_NAMESPACES, default \"application\")")
	fs.StringVar(&f.IP, "ip", "", "client identity: hostname, hostip, cidr:<cidr> or a literal (env APOLLO_IP)")
	fs.StringVar(&f.Secret, "secret", "", "access key secret (env APOLLO_ACCESS_KEY_SECRET)")
	fs.StringVar(&f.Format, "format", "", "output format: text or json")
	fs.BoolVar(&f.ShowSecrets, "show-secrets", false, "print sensitive values unmasked")
	fs.DurationVar(&f.PollTimeout, "poll-timeout", 0, "long poll timeout (default 90s)")
	return f
}

// Resolve merges the sources in increasing precedence: defaults,
// environment, settings file, explicitly set flags.
func Resolve(fs *flag.FlagSet, f *Flags, getenv func(string) string) (Settings, error) {
	s := Settings{
		Cluster: source.DefaultCluster,
		Format:  FormatText,
	}

	fromEnv(&s, getenv)

	if f.Config != "" {
		if err := fromFile(&s, f.Config); err != nil {
			return Settings{}, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server":
			s.Server = f.Server
		case "app":
			s.AppID = f.AppID
		case "cluster":
			s.Cluster = f.Cluster
		case "ns":
			s.Namespaces = SplitList(f.Namespaces)
		case "ip":
			s.IP = f.IP
		case "secret":
			s.Secret = f.Secret
		case "format":
			s.Format = f.Format
		case "show-secrets":
			s.ShowSecrets = f.ShowSecrets
		case "poll-timeout":
			s.PollTimeout = f.PollTimeout
		}
	})

	if len(s.Namespaces) == 0 {
		s.Namespaces = []string{"application"}
	}
	return s, s.Validate()
}

func fromEnv(s *Settings, getenv func(string) string) {
	if v := getenv("APOLLO_SERVER"); v != "" {
		s.Server = v
	}
	if v := getenv("APOLLO_APP_ID"); v != "" {
		s.AppID = v
	}
	if v := getenv("APOLLO_CLUSTER"); v != "" {
		s.Cluster = v
	}
	if v := getenv("APOLLO_NAMESPACES"); v != "" {
		s.Namespaces = SplitList(v)
	}
	if v := getenv("APOLLO_IP"); v != "" {
		s.IP = v
	}
	if v := getenv("APOLLO_ACCESS_KEY_SECRET"); v != "" {
		s.Secret = v
	}
}

// fromFile overlays the non-empty values of a YAML settings file.
func fromFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if file.Server != "" {
		s.Server = file.Server
	}
	if file.AppID != "" {
		s.AppID = file.AppID
	}
	if file.Cluster != "" {
		s.Cluster = file.Cluster
	}
	if len(file.Namespaces) > 0 {
		s.Namespaces = file.Namespaces
	}
	if file.IP != "" {
		s.IP = file.IP
	}
	if file.Secret != "" {
		s.Secret = file.Secret
	}
	if file.Format != "" {
		s.Format = file.Format
	}
	if file.ShowSecrets {
		s.ShowSecrets = true
	}
	if file.PollTimeout > 0 {
		s.PollTimeout = file.PollTimeout
	}
	return nil
}

// Validate checks that the settings are complete.
func (s Settings) Validate() error {
	var errs []error
	if s.Server == "" {
		errs = append(errs, errors.New("-server is required"))
	}
	if s.AppID == "" {
		errs = append(errs, errors.New("-app is required"))
	}
	if s.Format != FormatText && s.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown format %q", s.Format))
	}
	if _, err := clientip.Parse(s.IP); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Request returns the watch request described by the settings.
func (s Settings) Request() apollo.WatchRequest {
	return apollo.WatchRequest{
		AppID:      s.AppID,
		Cluster:    s.Cluster,
		Namespaces: s.Namespaces,
	}
}

// NewClient creates a client from the settings.
func (s Settings) NewClient(logger *slog.Logger) (*apollo.Client, error) {
	opts := []apollo.Option{
		apollo.WithCluster(s.Cluster),
		apollo.WithLogger(logger),
	}
	if s.IP != "" {
		ip, err := clientip.Parse(s.IP)
		if err != nil {
			return nil, err
		}
		opts = append(opts, apollo.WithClientIP(ip))
	}
	if s.Secret != "" {
		opts = append(opts, apollo.WithAccessKey(s.Secret))
	}
	if s.PollTimeout > 0 {
		opts = append(opts, apollo.WithWatchOptions(watcher.WithLongPollTimeout(s.PollTimeout)))
	}
	return apollo.New(s.Server, opts...)
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
