// Package source defines the boundary between the watch engine and the
// config service: the request values it sends, the payload it receives, and
// the errors it must be able to tell apart.
//
// The HTTP implementation lives in package configservice. Tests substitute
// their own implementations of NotificationChecker and NamespaceFetcher.
package source

import (
	"context"
	"net/url"
	"time"

	"github.com/jmjoy/apollo-client/notification"
)

// DefaultCluster is the cluster used when a request does not name one.
const DefaultCluster = "default"

// NotifyRequest is one long-poll notification check.
type NotifyRequest struct {
	AppID   string
	Cluster string

	// IP is the resolved client identity. Empty means the parameter is omitted.
	IP string

	// Notifications is the full current state, sent in order.
	Notifications []notification.Entry

	// Timeout bounds the whole request. Zero means the caller's context alone
	// bounds it.
	Timeout time.Duration

	// Extra holds additional query parameters, such as label or dataCenter.
	Extra url.Values
}

// FetchRequest fetches the latest payload of one namespace.
type FetchRequest struct {
	AppID     string
	Cluster   string
	Namespace string
	IP        string

	// ReleaseKey is the release key of the payload the caller already holds.
	// When it is still current the server answers ErrNotModified.
	ReleaseKey string

	// Extra holds additional query parameters, such as label or dataCenter.
	Extra url.Values
}

// NotificationChecker performs the long-poll notification check.
type NotificationChecker interface {
	// CheckNotifications returns the entries whose ids changed on the server.
	//
	// It returns ErrNotModified when the server reports no change and
	// ErrPollTimeout when req.Timeout elapses first. Any other error is a hard
	// failure.
	CheckNotifications(ctx context.Context, req NotifyRequest) ([]notification.Entry, error)
}

// NamespaceFetcher fetches namespace payloads.
type NamespaceFetcher interface {
	// FetchNamespace returns the latest payload of one namespace.
	//
	// Missing namespaces and applications are reported with errors that match
	// ErrNamespaceNotFound and ErrAppNotFound.
	FetchNamespace(ctx context.Context, req FetchRequest) (*Config, error)
}

// Source is the full set of config service operations used by a watch session.
type Source interface {
	NotificationChecker
	NamespaceFetcher
}
