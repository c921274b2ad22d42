// Package notification tracks the last notification id the config service
// reported for each watched namespace.
//
// The ids are opaque, server-issued sequence numbers. A State is sent in full
// with every long-poll request so the server can tell which namespaces the
// client has already seen.
package notification

import (
	"encoding/json"
)

// UninitializedID is the notification id of a namespace the server has never
// reported on.
const UninitializedID int64 = -1

// Entry pairs a namespace with its last known notification id.
// The JSON field names match the config service's notifications API.
type Entry struct {
	NamespaceName  string `json:"namespaceName"`
	NotificationID int64  `json:"notificationId"`
}

// IsUninitialized reports whether the server has never reported on the namespace.
func (e Entry) IsUninitialized() bool {
	return e.NotificationID == UninitializedID
}

// State is the ordered set of entries owned by one watch session.
//
// The namespace set is fixed when the State is created; only notification ids
// change afterwards. Entry order is the caller's namespace order and only
// matters for deterministic request encoding.
//
// State is not safe for concurrent use.
type State struct {
	entries []Entry
	index   map[string]int
}

// Ensure State can be encoded as the notifications query parameter.
var _ json.Marshaler = (*State)(nil)

// NewState creates a State with one uninitialized entry per namespace.
//
// Duplicate namespace names collapse to a single entry kept at the position of
// their first occurrence. Namespace names are compared exactly, without any
// case or suffix normalization.
func NewState(namespaces []string) *State {
	s := &State{
		entries: make([]Entry, 0, len(namespaces)),
		index:   make(map[string]int, len(namespaces)),
	}
	for _, ns := range namespaces {
		if _, ok := s.index[ns]; ok {
			continue
		}
		s.index[ns] = len(s.entries)
		s.entries = append(s.entries, Entry{NamespaceName: ns, NotificationID: UninitializedID})
	}
	return s
}

// Merge overwrites the notification id of every entry whose namespace matches
// an incoming entry. Incoming entries for namespaces that are not part of the
// State are ignored.
//
// Returns the matched namespaces in incoming order, without duplicates.
func (s *State) Merge(newer []Entry) []string {
	var matched []string
	seen := make(map[string]struct{}, len(newer))
	for _, n := range newer {
		i, ok := s.index[n.NamespaceName]
		if !ok {
			continue
		}
		s.entries[i].NotificationID = n.NotificationID
		if _, dup := seen[n.NamespaceName]; !dup {
			seen[n.NamespaceName] = struct{}{}
			matched = append(matched, n.NamespaceName)
		}
	}
	return matched
}

// IsUninitialized reports whether every entry still holds UninitializedID.
// It is false as soon as any single namespace has been merged with a real id.
func (s *State) IsUninitialized() bool {
	for _, e := range s.entries {
		if !e.IsUninitialized() {
			return false
		}
	}
	return true
}

// Lookup returns the entry for the namespace.
func (s *State) Lookup(namespace string) (Entry, bool) {
	i, ok := s.index[namespace]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Contains reports whether the namespace is part of the State.
func (s *State) Contains(namespace string) bool {
	_, ok := s.index[namespace]
	return ok
}

// Len returns the number of entries.
func (s *State) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in order.
func (s *State) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Namespaces returns the namespace names in order.
func (s *State) Namespaces() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.NamespaceName
	}
	return names
}

// MarshalJSON encodes the entries as a JSON array in order.
func (s *State) MarshalJSON() ([]byte, error) {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}
