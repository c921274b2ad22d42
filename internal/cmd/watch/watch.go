// Package watch provides the "watch" subcommand.
package watch

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/jmjoy/apollo-client/internal/cmd/output"
	"github.com/jmjoy/apollo-client/internal/cmd/settings"
)

// reloadDebounce coalesces the burst of events an editor save produces.
var reloadDebounce = 100 * time.Millisecond

// Run executes the watch command until SIGINT or SIGTERM.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Getenv, slog.Default())
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := settings.Bind(fs)
	fs.Usage = PrintHelp

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			PrintHelp()
			return nil
		}
		return err
	}

	s, err := settings.Resolve(fs, f, getenv)
	if err != nil {
		return err
	}

	var reloads <-chan struct{}
	if f.Config != "" {
		reloads, err = watchFile(ctx, f.Config, logger)
		if err != nil {
			return err
		}
	}

	for {
		next, err := session(ctx, s, stdout, reloads, logger, func() (settings.Settings, error) {
			return settings.Resolve(fs, f, getenv)
		})
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Info("settings changed, restarting watch", "app", next.AppID, "cluster", next.Cluster, "namespaces", next.Namespaces)
		s = next
	}
}

// session runs one watch session. It returns new settings when the settings
// file changed, or zero settings once ctx is done.
func session(ctx context.Context, s settings.Settings, stdout io.Writer, reloads <-chan struct{}, logger *slog.Logger, reload func() (settings.Settings, error)) (settings.Settings, error) {
	client, err := s.NewClient(logger)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to create client: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, err := client.Watch(sessCtx, s.Request())
	if err != nil {
		return settings.Settings{}, err
	}

	p := output.New(stdout, output.Config{JSON: s.Format == settings.FormatJSON, ShowSecrets: s.ShowSecrets})
	for {
		select {
		case b, ok := <-batches:
			if !ok {
				return settings.Settings{}, nil
			}
			if err := p.PrintBatch(b); err != nil {
				return settings.Settings{}, fmt.Errorf("failed to write output: %w", err)
			}
		case <-reloads:
			next, err := reload()
			if err != nil {
				logger.Warn("ignoring invalid settings file", "error", err)
				continue
			}
			if cmp.Equal(s, next) {
				continue
			}
			return next, nil
		}
	}
}

// watchFile signals on the returned channel when the file at path is
// written, created or renamed. The directory is watched so that atomic
// replacements are seen.
func watchFile(ctx context.Context, path string, logger *slog.Logger) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}
	filename := filepath.Base(abs)

	out := make(chan struct{}, 1)
	go func() {
		defer w.Close()

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("settings file watch error", "error", err)
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()
	return out, nil
}

// PrintHelp prints help for the watch command.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, `apollo watch - Print namespaces as they change

Usage:
  apollo watch [options]

The first output holds every namespace. Each later output holds only the
namespaces whose release changed. When -config is given, editing the settings
file restarts the watch with the new settings.

Options:
  -config string        YAML settings file
  -server string        Config service URL (env APOLLO_SERVER)
  -app string           Application id (env APOLLO_APP_ID)
  -cluster string       Cluster name (default "default")
  -ns string            Comma-separated namespaces (default "application")
  -ip string            Client identity: hostname, hostip, cidr:<cidr> or a literal
  -secret string        Access key secret (env APOLLO_ACCESS_KEY_SECRET)
  -format string        Output format: text or json (default "text")
  -show-secrets         Print sensitive values unmasked
  -poll-timeout value   Long poll timeout (default 90s)`)
}
