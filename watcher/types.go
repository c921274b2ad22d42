// Package watcher drives long-poll change notification for a set of
// namespaces and re-fetches the namespaces that changed.
//
// A Session owns one notification.State. It first fetches every namespace and
// emits that batch, then repeatedly checks for notifications. Each reported
// change is merged into the state and only the changed namespaces are fetched
// again and emitted as a Batch.
package watcher

import (
	"errors"
	"net/url"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

var (
	// ErrNoNamespaces is returned when a watch is requested for no namespaces.
	ErrNoNamespaces = errors.New("at least one namespace is required")

	// ErrNoAppID is returned when a watch is requested without an app id.
	ErrNoAppID = errors.New("app id is required")

	// ErrSessionStopped is returned when starting a session that was stopped.
	ErrSessionStopped = errors.New("watch session already stopped")
)

// Request describes what a Session watches.
type Request struct {
	AppID string

	// Cluster defaults to source.DefaultCluster.
	Cluster string

	// Namespaces are watched in the given order. Duplicates collapse to their
	// first occurrence.
	Namespaces []string

	// IP is the resolved client identity sent with every request. Optional.
	IP string

	// Query holds additional parameters sent with every request. Optional.
	Query url.Values
}

// Validate checks that the request can start a session.
func (r Request) Validate() error {
	if r.AppID == "" {
		return ErrNoAppID
	}
	if len(r.Namespaces) == 0 {
		return ErrNoNamespaces
	}
	return nil
}

func (r Request) cluster() string {
	if r.Cluster == "" {
		return source.DefaultCluster
	}
	return r.Cluster
}

// Result is the outcome of fetching one namespace.
// Exactly one of Config and Err is set.
type Result struct {
	Config *source.Config
	Err    error
}

// Batch is one item delivered by a Session.
//
// A batch either carries per-namespace Results or, when the notification
// check itself failed, only Err. Batches are never empty.
type Batch struct {
	Results map[string]Result
	Err     error
}

// Namespaces returns the namespaces in the batch that were fetched successfully.
func (b Batch) Namespaces() []string {
	var names []string
	for ns, r := range b.Results {
		if r.Err == nil {
			names = append(names, ns)
		}
	}
	return names
}

// Outcome classifies a single notification check.
// It is one of OutcomeChanged, OutcomeUnchanged, OutcomeTimedOut or OutcomeHardError.
type Outcome interface {
	outcome()
}

// OutcomeChanged reports namespaces whose notification ids changed.
type OutcomeChanged struct {
	Entries []notification.Entry
}

// OutcomeUnchanged reports that the server saw no change.
type OutcomeUnchanged struct{}

// OutcomeTimedOut reports that the check outlived its timeout.
type OutcomeTimedOut struct{}

// OutcomeHardError reports any other failure of the check.
type OutcomeHardError struct {
	Err error
}

func (OutcomeChanged) outcome()   {}
func (OutcomeUnchanged) outcome() {}
func (OutcomeTimedOut) outcome()  {}
func (OutcomeHardError) outcome() {}
