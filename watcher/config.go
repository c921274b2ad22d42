package watcher

import (
	"log/slog"
	"time"
)

const (
	// DefaultLongPollTimeout bounds a regular notification check. The server
	// holds a long poll for about 60 seconds before answering not modified.
	DefaultLongPollTimeout = 90 * time.Second

	// DefaultInitialPollTimeout bounds the first check of a session, which only
	// learns the current notification ids.
	DefaultInitialPollTimeout = 5 * time.Second

	// ServerHoldTimeout is how long the config service holds a long poll
	// before answering not modified.
	ServerHoldTimeout = 60 * time.Second
)

// Config configures a Session.
type Config struct {
	// LongPollTimeout bounds every check after the first. Default is 90 seconds.
	LongPollTimeout time.Duration

	// InitialPollTimeout bounds the first check while no notification id is
	// known yet. Default is 5 seconds.
	InitialPollTimeout time.Duration

	// RetryDelay is waited after a failed check before the next one.
	// Zero retries immediately.
	RetryDelay time.Duration

	// Logger receives session diagnostics. Default is slog.Default().
	Logger *slog.Logger
}

// Option is a functional option for Config.
type Option func(*Config)

// WithLongPollTimeout sets the timeout of regular notification checks.
// Values at or below ServerHoldTimeout make checks time out on the client
// while the server is still holding them, so every check is re-issued.
func WithLongPollTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.LongPollTimeout = d
	}
}

// WithInitialPollTimeout sets the timeout of the first notification check.
func WithInitialPollTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.InitialPollTimeout = d
	}
}

// WithRetryDelay sets the delay after a failed notification check.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// NewConfig creates a Config with the given options.
// Defaults: LongPollTimeout=90s, InitialPollTimeout=5s, RetryDelay=0.
func NewConfig(opts ...Option) Config {
	cfg := Config{}
	cfg.ApplyOptions(opts...)
	cfg.ApplyDefaults()
	return cfg
}

// ApplyOptions applies the given options to the config.
func (c *Config) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.LongPollTimeout <= 0 {
		c.LongPollTimeout = DefaultLongPollTimeout
	}
	if c.InitialPollTimeout <= 0 {
		c.InitialPollTimeout = DefaultInitialPollTimeout
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
