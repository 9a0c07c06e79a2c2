// Package subscription implements the Subscription Registry's live-match
// half: the process-wide map of attached sessions to their subscriptions,
// consulted by the Broadcast Fabric's local fan-out on every admitted
// event (§4.4, §4.7).
package subscription

import (
	"sync"

	"meshrelay.dev/pkg/encoders/envelopes/eventenvelope"
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/protocol/auth"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/log"
)

// Writer is the narrow surface Registry needs from a session: enough to
// write a delivered event and to identify the connection's auth state for
// privileged-event filtering.
type Writer interface {
	Write(p []byte) (int, error)
	AuthedPubkey() string
}

// Registry is the process-wide live-subscription map.
type Registry struct {
	mu   sync.Mutex
	subs map[Writer]map[string][]*filter.F
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Writer]map[string][]*filter.F)}
}

// Install registers subID's filters for w, replacing any prior filters
// under the same id.
func (r *Registry) Install(w Writer, subID string, filters []*filter.F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[w] == nil {
		r.subs[w] = make(map[string][]*filter.F)
	}
	r.subs[w][subID] = filters
}

// Cancel removes subID from w's live subscriptions.
func (r *Registry) Cancel(w Writer, subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.subs[w]; ok {
		delete(m, subID)
		if len(m) == 0 {
			delete(r.subs, w)
		}
	}
}

// Remove drops every subscription owned by w, called on connection close.
func (r *Registry) Remove(w Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, w)
}

// Deliver matches ev against every live subscription and writes an EVENT
// frame to each subscriber whose filter matches, honoring privileged-event
// visibility (§4.6): direct messages and gift wraps are only delivered to
// their author or a named "p" participant.
func (r *Registry) Deliver(ev *event.E) {
	r.mu.Lock()
	type hit struct {
		w     Writer
		subID string
	}
	var hits []hit
	for w, subs := range r.subs {
		if ev.Kind.IsPrivileged() && !auth.CheckPrivilege(w.AuthedPubkey(), ev) {
			continue
		}
		for subID, filters := range subs {
			for _, f := range filters {
				if f.Matches(ev) {
					hits = append(hits, hit{w, subID})
					break
				}
			}
		}
	}
	r.mu.Unlock()

	for _, h := range hits {
		env := eventenvelope.NewFrom(h.subID, ev)
		b, err := env.Marshal()
		if chk.E(err) {
			continue
		}
		if _, err = h.w.Write(b); err != nil {
			log.T.F("delivery to subscriber failed: %v", err)
		}
	}
}
