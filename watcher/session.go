package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmjoy/apollo-client/logger"
	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

// Session watches one set of namespaces.
//
// The session goroutine exclusively owns the notification state. Results are
// delivered on an unbuffered channel, so the session does not poll again until
// the previous batch has been received.
type Session struct {
	exchange *Exchange
	fetcher  *Fetcher
	state    *notification.State
	cfg      Config
	logger   *slog.Logger

	results chan Batch
	stopCh  chan struct{}

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewSession creates a Session for req using src for every request.
func NewSession(src source.Source, req Request, opts ...Option) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := NewConfig(opts...)
	state := notification.NewState(req.Namespaces)
	s := &Session{
		exchange: NewExchange(src, req),
		fetcher:  NewFetcher(src, req),
		state:    state,
		cfg:      cfg,
		logger: logger.NewSessionLogger(cfg.Logger).With(
			"appId", req.AppID,
			"cluster", req.cluster(),
			"namespaces", state.Namespaces(),
		),
	}
	if cfg.LongPollTimeout <= ServerHoldTimeout {
		s.logger.Warn("long poll timeout does not exceed the server hold time; checks will time out and be re-issued",
			"timeout", cfg.LongPollTimeout, "serverHold", ServerHoldTimeout)
	}
	return s, nil
}

// Watch starts a Session and returns its result channel.
//
// The channel is closed when ctx is canceled. Invalid requests fail
// synchronously with ErrNoAppID or ErrNoNamespaces.
//
// Example:
//
//	batches, err := watcher.Watch(ctx, client, watcher.Request{
//	    AppID:      "SampleApp",
//	    Namespaces: []string{"application", "datasource.yml"},
//	})
//	for b := range batches {
//	    ...
//	}
func Watch(ctx context.Context, src source.Source, req Request, opts ...Option) (<-chan Batch, error) {
	s, err := NewSession(src, req, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s.Results(), nil
}

// Start begins watching. Calling Start on a running session does nothing.
// A stopped session cannot be restarted; create a new one instead.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	s.running = true
	s.results = make(chan Batch)
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	go func() {
		defer cancel()
		defer close(s.results)
		s.run(runCtx)
	}()
	return nil
}

// Stop stops the session. In-flight requests are abandoned and the result
// channel is closed shortly after.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.stopped = true
	close(s.stopCh)
	return nil
}

// Results returns the channel receiving batches.
// Returns nil if Start has not been called.
func (s *Session) Results() <-chan Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *Session) run(ctx context.Context) {
	s.logger.Debug("watch session started")
	defer s.logger.Debug("watch session stopped")

	initial := s.fetcher.Fetch(ctx, s.state.Namespaces())
	if ctx.Err() != nil || !s.emit(ctx, Batch{Results: initial}) {
		return
	}

	for checks := 0; ; checks++ {
		// The first check only learns the current ids; the initial batch
		// already carried the content.
		priming := checks == 0 && s.state.IsUninitialized()
		timeout := s.cfg.LongPollTimeout
		if priming {
			timeout = s.cfg.InitialPollTimeout
		}

		outcome, err := s.exchange.Check(ctx, s.state, timeout)
		if err != nil {
			return
		}

		switch o := outcome.(type) {
		case OutcomeChanged:
			changed := s.state.Merge(o.Entries)
			if priming {
				s.logger.Debug("notification ids initialized", "namespaces", changed)
				continue
			}
			if len(changed) == 0 {
				s.logger.Debug("notification for unknown namespaces ignored", "entries", o.Entries)
				continue
			}
			s.logger.Debug("namespaces changed", "namespaces", changed)

			results := s.fetcher.Fetch(ctx, changed)
			if ctx.Err() != nil || !s.emit(ctx, Batch{Results: results}) {
				return
			}

		case OutcomeUnchanged:
			s.logger.Debug("no change", "priming", priming)

		case OutcomeTimedOut:
			s.logger.Debug("long poll timed out", "timeout", timeout, "priming", priming)

		case OutcomeHardError:
			s.logger.Warn("notification check failed", "error", o.Err)
			if !s.emit(ctx, Batch{Err: o.Err}) {
				return
			}
			if !s.sleep(ctx, s.cfg.RetryDelay) {
				return
			}
		}
	}
}

// emit delivers b, giving up when ctx is done.
func (s *Session) emit(ctx context.Context, b Batch) bool {
	select {
	case s.results <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
