package apollo

import (
	"context"
	"errors"
)

var errWatchEnded = errors.New("watch ended before the first batch")

// StoreWatchConfig configures Store.Watch.
type StoreWatchConfig struct {
	// OnError is called for every failure. namespace is empty when the
	// notification check itself failed. If nil, errors are ignored.
	OnError func(namespace string, err error)

	// OnReload is called after a batch updated at least one namespace.
	// This is called in addition to any registered subscribers.
	OnReload func(updated []string)
}

// Watch keeps the store up to date from a watch session until stop is called
// or ctx is canceled. The first batch is applied before Watch returns, so the
// store is populated when err is nil.
//
// Example:
//
//	stop, err := store.Watch(ctx, client, apollo.WatchRequest{
//	    AppID:      "SampleApp",
//	    Namespaces: []string{"application"},
//	}, apollo.StoreWatchConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stop(context.Background())
func (s *Store) Watch(ctx context.Context, w Watcher, req WatchRequest, cfg StoreWatchConfig) (stop func(context.Context) error, err error) {
	watchCtx, watchCancel := context.WithCancel(ctx)

	batches, err := w.Watch(watchCtx, req)
	if err != nil {
		watchCancel()
		return nil, err
	}

	select {
	case b, ok := <-batches:
		if !ok {
			watchCancel()
			return nil, errWatchEnded
		}
		s.handle(b, cfg)
	case <-watchCtx.Done():
		watchCancel()
		return nil, watchCtx.Err()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for b := range batches {
			s.handle(b, cfg)
		}
	}()

	stop = func(stopCtx context.Context) error {
		watchCancel()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
	return stop, nil
}

func (s *Store) handle(b Batch, cfg StoreWatchConfig) {
	change := s.Apply(b)
	if cfg.OnError != nil {
		if change.Err != nil {
			cfg.OnError("", change.Err)
		}
		for ns, err := range change.Failed {
			cfg.OnError(ns, err)
		}
	}
	if cfg.OnReload != nil && len(change.Updated) > 0 {
		cfg.OnReload(change.Updated)
	}
}
