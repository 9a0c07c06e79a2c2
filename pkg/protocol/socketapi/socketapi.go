// Package socketapi implements the Protocol Dispatcher (§4.2): the
// websocket upgrade, the read loop, and per-frame-type dispatch into the
// instance's Admission Pipeline and Subscription Registry.
//
// Frames are processed synchronously, one at a time, per connection. The
// protocol's ordering invariants (EOSE always follows the historical
// replay it terminates; an OK always answers the EVENT that produced it in
// submission order) depend on this: dispatching each frame onto its own
// goroutine would let a slow admission check for an early frame finish
// after a fast one for a later frame, reordering replies the client did
// not expect reordered.
package socketapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"

	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/protocol/auth"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
)

const (
	DefaultWriteWait       = 10 * time.Second
	DefaultPongWait        = 60 * time.Second
	DefaultPingWait        = 30 * time.Second
	DefaultMaxMessageSize  = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades r to a websocket, creates a Session (or rehydrates the one
// named by its "sid" query parameter), labels it with the "region" and
// "doName" query parameters, and processes inbound frames until the
// connection closes.
func Serve(ctx context.T, inst *instance.Instance, w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Upgrade", "websocket")
		w.WriteHeader(http.StatusUpgradeRequired)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if chk.E(err) {
		return
	}
	region := queryOr(r, "region", "unknown")
	instanceName := queryOr(r, "doName", "default")

	// A "sid" query parameter is this connection's own attachment carrying
	// its session id across the gap the upgrade handshake can't otherwise
	// see past (§9). The relay never sends a session id to the client, so a
	// sid is one the client chose itself and presents again on reconnect.
	// Its subscriptions, if any survived in durable storage, are rehydrated
	// onto the fresh socket instead of making the client re-REQ from
	// scratch.
	id := queryOr(r, "sid", "")
	rehydrating := id != ""
	if !rehydrating {
		id = newSessionID()
	}

	sess := ws.New(id, conn, r, instanceName, region, inst.NewLimiters())
	inst.Attach(sess)
	defer inst.Detach(sess)
	if rehydrating {
		inst.Rehydrate(sess)
	}

	if inst.AuthRequired() {
		sess.SetChallenge(auth.GenerateChallenge())
		writeAuthChallenge(sess)
	}

	// The transport read limit is set well above the protocol's own cap
	// (§4.1, §5): an oversize frame must be refused with a NOTICE and the
	// connection kept open, not killed at the transport layer. The
	// oversize check below is the real enforcement point; this limit only
	// bounds how much a single frame can make the socket buffer before
	// that check runs.
	conn.SetReadLimit(int64(inst.Config.MaxMessageSize) * 4)
	_ = conn.SetReadDeadline(time.Now().Add(DefaultPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(DefaultPongWait))
	})

	connCtx, cancel := context.Cancel(ctx)
	defer cancel()
	go pinger(connCtx, sess)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.T.F("session %s closed: %v", sess.ID, err)
			return
		}
		if int64(len(msg)) >= inst.Config.MaxMessageSize {
			writeNotice(sess, fmt.Sprintf(
				"invalid: message too large: %d bytes exceeds %d byte limit",
				len(msg), inst.Config.MaxMessageSize,
			))
			continue
		}
		Dispatch(ctx, inst, sess, msg)
	}
}

func queryOr(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func newSessionID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func pinger(ctx context.T, sess *ws.Session) {
	t := time.NewTicker(DefaultPingWait)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := sess.Conn.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(DefaultWriteWait),
			); err != nil {
				log.T.F("ping to session %s failed: %v", sess.ID, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
