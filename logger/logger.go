// Package logger configures log/slog for the apollo command and attaches
// session identifiers to per-session loggers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Config struct {
	// Output receives log records when LOG_FILE is unset. Defaults to os.Stderr
	// so that command output on stdout stays machine readable.
	Output io.Writer
}

// Init initializes the global slog logger.
// LOG_LEVEL selects the level (debug, info, warn, error), LOG_FORMAT=json
// selects JSON output and LOG_FILE redirects records to a file.
func Init(cfg Config) {
	slog.SetDefault(New(cfg, os.Getenv))
}

// New builds a logger from cfg and the given environment lookup.
func New(cfg Config, getenv func(string) string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(getenv("LOG_LEVEL"))}

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	if logFile := getenv("LOG_FILE"); logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			slog.Error("failed to create log directory, using stderr", "file", logFile, "error", err)
		} else {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				slog.Error("failed to open log file, using stderr", "file", logFile, "error", err)
			} else {
				w = f
			}
		}
	}

	var handler slog.Handler
	if getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSessionLogger returns base with a unique sessionId attribute.
// A nil base uses slog.Default().
func NewSessionLogger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("sessionId", uuid.Must(uuid.NewV7()).String())
}
