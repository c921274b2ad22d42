package apollo

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jmjoy/apollo-client/decoder"
	"github.com/jmjoy/apollo-client/source"
)

// ErrUnknownNamespace is returned when the Store holds no payload for a namespace.
var ErrUnknownNamespace = errors.New("namespace not loaded")

// Change describes what one applied batch did to a Store.
type Change struct {
	// Updated lists namespaces whose payload changed, sorted.
	Updated []string

	// Failed holds per-namespace fetch errors. The previous payload is kept.
	Failed map[string]error

	// Err is the notification check error of a failed batch.
	Err error
}

// Empty reports whether the change neither updated nor failed anything.
func (c Change) Empty() bool {
	return len(c.Updated) == 0 && len(c.Failed) == 0 && c.Err == nil
}

type subscriber struct {
	id uint64
	fn func(Change)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDecoder sets the decoder used for properties namespaces.
// Default is decoder.Mapstructure.
func WithDecoder(dec decoder.Func) StoreOption {
	return func(s *Store) {
		s.decoder = dec
	}
}

// Store holds the latest payload of each namespace.
//
// Batches are applied with Apply, usually from Watch. Only successful results
// replace a payload, so a failing fetch never erases known configuration.
type Store struct {
	mu          sync.RWMutex
	configs     map[string]*source.Config
	subscribers []subscriber
	nextSubID   uint64
	decoder     decoder.Func
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		configs: map[string]*source.Config{},
		decoder: decoder.Mapstructure,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply merges a batch and notifies subscribers if anything changed.
func (s *Store) Apply(b Batch) Change {
	if b.Err != nil {
		change := Change{Err: b.Err}
		s.notify(change)
		return change
	}

	var change Change
	s.mu.Lock()
	for ns, r := range b.Results {
		if r.Err != nil {
			if change.Failed == nil {
				change.Failed = map[string]error{}
			}
			change.Failed[ns] = r.Err
			continue
		}
		if r.Config == nil {
			continue
		}
		if old, ok := s.configs[ns]; ok && sameRelease(old, r.Config) {
			continue
		}
		s.configs[ns] = r.Config
		change.Updated = append(change.Updated, ns)
	}
	s.mu.Unlock()

	slices.Sort(change.Updated)
	if !change.Empty() {
		s.notify(change)
	}
	return change
}

func sameRelease(a, b *source.Config) bool {
	return a.ReleaseKey == b.ReleaseKey && maps.Equal(a.Configurations, b.Configurations)
}

// Get returns the payload of a namespace.
func (s *Store) Get(namespace string) (*source.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[namespace]
	return cfg, ok
}

// Value returns one configuration value of a namespace.
func (s *Store) Value(namespace, key string) (string, bool) {
	cfg, ok := s.Get(namespace)
	if !ok {
		return "", false
	}
	return cfg.Value(key)
}

// Decode decodes the payload of a namespace into target.
func (s *Store) Decode(namespace string, target any) error {
	cfg, ok := s.Get(namespace)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}
	return cfg.DecodeWith(target, s.decoder)
}

// Namespaces returns the loaded namespaces, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.configs))
}

// Subscribe registers a callback that is called after every non-empty Apply.
// Returns an unsubscribe function that is safe to call multiple times.
//
// Example:
//
//	unsubscribe := store.Subscribe(func(c apollo.Change) {
//	    log.Printf("updated: %v", c.Updated)
//	})
//	defer unsubscribe()
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	subscribers := append([]subscriber(nil), s.subscribers...)
	s.mu.RUnlock()

	for _, sub := range subscribers {
		sub.fn(c)
	}
}
