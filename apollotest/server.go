// Package apollotest provides an in-memory config service for tests and a
// compliance suite for source.Source implementations.
package apollotest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/jmjoy/apollo-client/notification"
	"github.com/jmjoy/apollo-client/source"
)

// DefaultHoldTimeout is how long a notification request is held before the
// server answers 304. The real service holds for about 60 seconds.
const DefaultHoldTimeout = 60 * time.Second

type namespaceKey struct {
	appID, cluster, namespace string
}

type release struct {
	configurations map[string]string
	releaseKey     string
	notificationID int64
}

// Request records one request received by the Server.
type Request struct {
	Path  string
	Query map[string]string

	// Notifications is the decoded notifications parameter of a long poll.
	Notifications []notification.Entry
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHoldTimeout sets how long notification requests are held.
func WithHoldTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.hold = d
	}
}

// WithAccessKey makes the server reject requests for appID that are not
// signed with secret.
func WithAccessKey(appID, secret string) ServerOption {
	return func(s *Server) {
		s.secrets[appID] = secret
	}
}

// Server is a fake config service backed by httptest.Server.
//
// Publish changes with Publish and Delete; pending long polls are answered as
// soon as a watched namespace changes.
type Server struct {
	*httptest.Server

	hold    time.Duration
	secrets map[string]string

	mu       sync.Mutex
	releases map[namespaceKey]*release
	apps     map[string]struct{}
	nextID   int64
	changed  chan struct{}
	closed   chan struct{}
	requests []Request
	failures map[string]int
}

// NewServer starts a Server. Close it when done.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		hold:     DefaultHoldTimeout,
		secrets:  map[string]string{},
		releases: map[namespaceKey]*release{},
		apps:     map[string]struct{}{},
		changed:  make(chan struct{}),
		closed:   make(chan struct{}),
		failures: map[string]int{},
		nextID:   1,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications/v2", s.handleNotifications)
	mux.HandleFunc("GET /configs/{app}/{cluster}/{namespace}", s.handleConfigs)
	mux.HandleFunc("GET /configfiles/json/{app}/{cluster}/{namespace}", s.handleConfigFiles)
	s.Server = httptest.NewServer(s.authorize(s.record(mux)))
	return s
}

// Close releases pending long polls and shuts the server down.
func (s *Server) Close() {
	s.mu.Lock()
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	s.mu.Unlock()
	s.Server.Close()
}

// Publish releases a new version of a namespace and wakes pending long polls.
// Non-properties namespaces keep their document under the "content" key.
func (s *Server) Publish(appID, cluster, namespace string, configurations map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cluster == "" {
		cluster = source.DefaultCluster
	}
	id := s.nextID
	s.nextID++

	cp := make(map[string]string, len(configurations))
	for k, v := range configurations {
		cp[k] = v
	}
	s.apps[appID] = struct{}{}
	s.releases[namespaceKey{appID, cluster, namespace}] = &release{
		configurations: cp,
		releaseKey:     fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102150405"), id),
		notificationID: id,
	}
	s.broadcastLocked()
}

// Delete removes a namespace.
func (s *Server) Delete(appID, cluster, namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cluster == "" {
		cluster = source.DefaultCluster
	}
	delete(s.releases, namespaceKey{appID, cluster, namespace})
	s.broadcastLocked()
}

// FailNext makes the next n requests whose path starts with prefix answer 500.
func (s *Server) FailNext(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] += n
}

// NotificationID returns the current notification id of a namespace.
func (s *Server) NotificationID(appID, cluster, namespace string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cluster == "" {
		cluster = source.DefaultCluster
	}
	if r, ok := s.releases[namespaceKey{appID, cluster, namespace}]; ok {
		return r.notificationID
	}
	return notification.UninitializedID
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests had the given path prefix.
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{Path: r.URL.Path, Query: map[string]string{}}
		for k := range r.URL.Query() {
			req.Query[k] = r.URL.Query().Get(k)
		}
		if raw := req.Query["notifications"]; raw != "" {
			_ = json.Unmarshal([]byte(raw), &req.Notifications)
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		fail := false
		for prefix, n := range s.failures {
			if n > 0 && strings.HasPrefix(r.URL.Path, prefix) {
				s.failures[prefix] = n - 1
				fail = true
				break
			}
		}
		s.mu.Unlock()

		if fail {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appID := r.URL.Query().Get("appId")
		if appID == "" {
			if parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/"); len(parts) > 1 {
				appID = parts[1]
				if parts[0] == "configfiles" && len(parts) > 2 {
					appID = parts[2]
				}
			}
		}

		secret, ok := s.secrets[appID]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ts := r.Header.Get("Timestamp")
		mac := hmac.New(sha1.New, []byte(secret))
		mac.Write([]byte(ts + "\n" + r.URL.RequestURI()))
		want := "Apollo " + appID + ":" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
		if ts == "" || !hmac.Equal([]byte(r.Header.Get("Authorization")), []byte(want)) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// changedLocked returns the entries whose server id differs from the client's.
func (s *Server) changedLocked(appID, cluster string, entries []notification.Entry) []notification.Entry {
	var out []notification.Entry
	for _, e := range entries {
		r, ok := s.releases[namespaceKey{appID, cluster, e.NamespaceName}]
		if ok && r.notificationID != e.NotificationID {
			out = append(out, notification.Entry{NamespaceName: e.NamespaceName, NotificationID: r.notificationID})
		}
	}
	return out
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appID, cluster := q.Get("appId"), q.Get("cluster")
	if cluster == "" {
		cluster = source.DefaultCluster
	}

	var entries []notification.Entry
	if err := json.Unmarshal([]byte(q.Get("notifications")), &entries); err != nil || appID == "" {
		writeError(w, http.StatusBadRequest, "invalid notifications request")
		return
	}

	hold := time.NewTimer(s.hold)
	defer hold.Stop()

	for {
		s.mu.Lock()
		changed := s.changedLocked(appID, cluster, entries)
		wake := s.changed
		s.mu.Unlock()

		if len(changed) > 0 {
			writeJSON(w, changed)
			return
		}

		select {
		case <-wake:
		case <-hold.C:
			w.WriteHeader(http.StatusNotModified)
			return
		case <-s.closed:
			w.WriteHeader(http.StatusNotModified)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (namespaceKey, *release, bool) {
	key := namespaceKey{r.PathValue("app"), r.PathValue("cluster"), r.PathValue("namespace")}

	s.mu.Lock()
	rel, ok := s.releases[key]
	_, appKnown := s.apps[key.appID]
	s.mu.Unlock()

	switch {
	case !appKnown:
		writeError(w, http.StatusNotFound, "app not found: "+key.appID)
		return key, nil, false
	case !ok:
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Could not load configurations with appId: %s, clusterName: %s, namespace: %s",
			key.appID, key.cluster, key.namespace))
		return key, nil, false
	}
	return key, rel, true
}

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	key, rel, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rk := r.URL.Query().Get("releaseKey"); rk != "" && rk == rel.releaseKey {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, source.Config{
		AppID:          key.appID,
		Cluster:        key.cluster,
		NamespaceName:  key.namespace,
		Configurations: rel.configurations,
		ReleaseKey:     rel.releaseKey,
	})
}

func (s *Server) handleConfigFiles(w http.ResponseWriter, r *http.Request) {
	_, rel, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, rel.configurations)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"message":   msg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
