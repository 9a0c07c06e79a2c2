// Package ws implements the relay's connection session: the websocket
// transport plus the auth, subscription and rate-limit state that travels
// with it (§3 Connection Session, §4.1 Connection Manager).
package ws

import (
	"net/http"
	"strings"
	"sync"

	"github.com/fasthttp/websocket"
	"go.uber.org/atomic"

	"meshrelay.dev/pkg/app/relay/helpers"
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/ratelimit"
)

// Session is a single connection's mutable state: the socket, its
// subscriptions, its rate limiters, and its auth handshake progress.
// Created at upgrade, destroyed on close; when the upgrade request names a
// session id, its subscriptions are rehydrated from durable storage (see
// the instance package's rehydration path). That path does not read the
// session's Attachment.
type Session struct {
	mutex sync.Mutex

	ID           string
	Conn         *websocket.Conn
	Request      *http.Request
	InstanceName string
	RegionLabel  string
	Bookmark     string

	Limiters *ratelimit.Buckets

	remote        atomic.String
	authedPubkey  atomic.String
	authRequested atomic.Bool
	isAuthed      atomic.Bool
	challenge     atomic.String

	subs map[string][]*filter.F

	pendingEvent *event.E
}

// New creates a Session for a freshly upgraded connection.
func New(
	id string, conn *websocket.Conn, req *http.Request,
	instanceName, regionLabel string, limiters *ratelimit.Buckets,
) *Session {
	s := &Session{
		ID:           id,
		Conn:         conn,
		Request:      req,
		InstanceName: instanceName,
		RegionLabel:  regionLabel,
		Limiters:     limiters,
		subs:         make(map[string][]*filter.F),
	}
	s.setRemoteFromReq(req)
	return s
}

func (s *Session) setRemoteFromReq(r *http.Request) {
	rr := helpers.GetRemoteFromReq(r)
	if rr == "" && s.Conn != nil {
		rr = s.Conn.NetConn().RemoteAddr().String()
	}
	s.remote.Store(rr)
}

// Write sends a text frame to the client. Concurrent writers are
// serialized since the underlying websocket connection only supports one
// writer at a time.
func (s *Session) Write(p []byte) (n int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err = s.Conn.WriteMessage(websocket.TextMessage, p); err != nil {
		n = len(p)
		if strings.Contains(err.Error(), "close sent") {
			_ = s.Conn.Close()
			return n, nil
		}
		return 0, err
	}
	return len(p), nil
}

// WriteJSON encodes v as JSON and sends it to the client.
func (s *Session) WriteJSON(v any) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.Conn.WriteJSON(v)
}

// Close closes the underlying connection from the server side.
func (s *Session) Close() error { return s.Conn.Close() }

// RealRemote returns the client's observed remote address.
func (s *Session) RealRemote() string { return s.remote.Load() }

func (s *Session) IsAuthed() bool { return s.isAuthed.Load() }

func (s *Session) AuthedPubkey() string { return s.authedPubkey.Load() }

// SetAuthedPubkey records a completed auth handshake.
func (s *Session) SetAuthedPubkey(pubkey string) {
	s.authedPubkey.Store(pubkey)
	s.isAuthed.Store(true)
}

func (s *Session) Challenge() string { return s.challenge.Load() }

// SetChallenge installs a fresh auth challenge. Challenges do not expire on
// a clock; they expire only when a new one is issued, typically on
// rehydration (§5).
func (s *Session) SetChallenge(c string) { s.challenge.Store(c) }

func (s *Session) AuthRequested() bool { return s.authRequested.Load() }
func (s *Session) RequestAuth()        { s.authRequested.Store(true) }

func (s *Session) SetPendingEvent(ev *event.E) { s.pendingEvent = ev }
func (s *Session) TakePendingEvent() (ev *event.E) {
	ev, s.pendingEvent = s.pendingEvent, nil
	return
}

// AddSubscription installs or replaces the filter list for subID.
func (s *Session) AddSubscription(subID string, filters []*filter.F) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.subs[subID] = filters
}

// RemoveSubscription drops subID, reporting whether it existed.
func (s *Session) RemoveSubscription(subID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.subs[subID]; !ok {
		return false
	}
	delete(s.subs, subID)
	return true
}

// Subscriptions returns a snapshot copy of the session's current
// subscription-id -> filter-list map, safe to range over without holding
// the session's lock.
func (s *Session) Subscriptions() map[string][]*filter.F {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make(map[string][]*filter.F, len(s.subs))
	for k, v := range s.subs {
		out[k] = v
	}
	return out
}

// Attachment snapshots the session into its serializable hibernation
// header.
func (s *Session) Attachment() *Attachment {
	return &Attachment{
		SessionID:    s.ID,
		Bookmark:     s.Bookmark,
		Host:         s.RealRemote(),
		InstanceName: s.InstanceName,
	}
}
