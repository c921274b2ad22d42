// Package fetch provides the "fetch" subcommand.
package fetch

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmjoy/apollo-client/internal/cmd/output"
	"github.com/jmjoy/apollo-client/internal/cmd/settings"
)

// Run executes the fetch command.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Getenv, slog.Default())
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := settings.Bind(fs)
	fs.Usage = PrintHelp

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			PrintHelp()
			return nil
		}
		return err
	}

	s, err := settings.Resolve(fs, f, getenv)
	if err != nil {
		return err
	}

	client, err := s.NewClient(logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	results, err := client.FetchAll(ctx, s.Request())
	if err != nil {
		return err
	}

	p := output.New(stdout, output.Config{JSON: s.Format == settings.FormatJSON, ShowSecrets: s.ShowSecrets})
	if err := p.PrintResults(results); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d namespaces failed", failed, len(results))
	}
	return nil
}

// PrintHelp prints help for the fetch command.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, `apollo fetch - Fetch the latest release of each namespace

Usage:
  apollo fetch [options]

Options:
  -config string        YAML settings file
  -server string        Config service URL (env APOLLO_SERVER)
  -app string           Application id (env APOLLO_APP_ID)
  -cluster string       Cluster name (default "default")
  -ns string            Comma-separated namespaces (default "application")
  -ip string            Client identity: hostname, hostip, cidr:<cidr> or a literal
  -secret string        Access key secret (env APOLLO_ACCESS_KEY_SECRET)
  -format string        Output format: text or json (default "text")
  -show-secrets         Print sensitive values unmasked`)
}
