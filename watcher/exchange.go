package watcher

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

// Exchange performs one long-poll notification check and classifies its result.
type Exchange struct {
	checker source.NotificationChecker
	appID   string
	cluster string
	ip      string
	query   url.Values
}

// NewExchange creates an Exchange for the app, cluster and identity of req.
func NewExchange(checker source.NotificationChecker, req Request) *Exchange {
	return &Exchange{
		checker: checker,
		appID:   req.AppID,
		cluster: req.cluster(),
		ip:      req.IP,
		query:   req.Query,
	}
}

// Check sends the full state and waits up to timeout for the server's answer.
// The checker enforces timeout and reports its expiry as source.ErrPollTimeout.
//
// The returned error is non-nil only when ctx itself is done; every other
// failure is reported as OutcomeHardError. A successful answer with no entries
// is OutcomeUnchanged.
func (e *Exchange) Check(ctx context.Context, state *notification.State, timeout time.Duration) (Outcome, error) {
	entries, err := e.checker.CheckNotifications(ctx, source.NotifyRequest{
		AppID:         e.appID,
		Cluster:       e.cluster,
		IP:            e.ip,
		Notifications: state.Entries(),
		Timeout:       timeout,
		Extra:         e.query,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	switch {
	case err == nil && len(entries) == 0:
		return OutcomeUnchanged{}, nil
	case err == nil:
		return OutcomeChanged{Entries: entries}, nil
	case errors.Is(err, source.ErrNotModified):
		return OutcomeUnchanged{}, nil
	case isTimeout(err):
		return OutcomeTimedOut{}, nil
	default:
		return OutcomeHardError{Err: err}, nil
	}
}

// isTimeout reports whether err is a request timeout. Only meaningful while
// the parent context is still alive.
func isTimeout(err error) bool {
	if errors.Is(err, source.ErrPollTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
