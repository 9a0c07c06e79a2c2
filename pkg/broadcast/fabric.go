// Package broadcast implements the Broadcast Fabric (§4.7): local fan-out
// to every matching subscriber on this instance, plus a best-effort,
// at-least-some-succeed POST fan-out to sibling instances, with duplicate
// suppression on both the outbound (self-exclusion) and inbound (dedup
// map) sides.
package broadcast

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/subscription"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
)

// Fabric fans an admitted event out to local subscribers and sibling
// instances.
type Fabric struct {
	instanceName string
	siblings     []string
	hints        map[string]string
	secret       string
	timeout      time.Duration
	client       *http.Client

	registry *subscription.Registry

	dedup     DedupBackend
	retention time.Duration
}

// New builds a Fabric for instanceName, fanning out to siblings (excluding
// itself if present in the list) via their resolved endpoint hints. A nil
// dedup backend defaults to the in-memory Dedup Record map (§3); pass a
// *RedisDedup to share the record across a fleet instead.
func New(
	instanceName string, siblings []string, hints map[string]string,
	secret string, timeout time.Duration, retention time.Duration,
	registry *subscription.Registry, dedup DedupBackend,
) *Fabric {
	if dedup == nil {
		dedup = newMemoryDedup()
	}
	return &Fabric{
		instanceName: instanceName,
		siblings:     siblings,
		hints:        hints,
		secret:       secret,
		timeout:      timeout,
		client:       &http.Client{},
		registry:     registry,
		dedup:        dedup,
		retention:    retention,
	}
}

// Publish delivers ev to local subscribers and fans it out to every
// sibling instance. Local delivery always happens; sibling delivery is
// best-effort and never blocks or fails the publish.
func (f *Fabric) Publish(ctx context.T, ev *event.E) {
	if _, err := f.dedup.CheckAndMark(ctx, ev.ID, f.retention); chk.E(err) {
		// A dedup-backend failure must not block a locally-originated
		// publish; worst case is a spurious future echo delivery.
	}
	f.registry.Deliver(ev)
	for _, sibling := range f.siblings {
		if sibling == f.instanceName || sibling == "" {
			continue
		}
		go f.postToSibling(ctx, sibling, ev)
	}
}

func (f *Fabric) postToSibling(parent context.T, sibling string, ev *event.E) {
	ctx, cancel := context.Deadline(parent, f.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"event":      ev,
		"sourceDoId": f.instanceName,
	})
	if chk.E(err) {
		return
	}
	url := f.resolveURL(sibling)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if chk.E(err) {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if f.secret != "" {
		req.Header.Set("X-Broadcast-Secret", f.secret)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.T.F("broadcast to %s failed: %v", sibling, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.T.F("broadcast to %s returned %d", sibling, resp.StatusCode)
	}
}

func (f *Fabric) resolveURL(sibling string) string {
	host := sibling
	if hint, ok := f.hints[sibling]; ok && hint != "" {
		host = hint
	}
	return "https://" + host + "/do-broadcast"
}

// ReceiveBroadcast processes an inbound sibling broadcast, delivering ev
// locally unless its id was already processed within the dedup retention
// window, in which case it reports duplicate=true without redelivering.
func (f *Fabric) ReceiveBroadcast(ev *event.E, sourceDoID string) (duplicate bool) {
	seen, err := f.dedup.CheckAndMark(context.Bg(), ev.ID, f.retention)
	if chk.E(err) {
		seen = false
	}
	if seen {
		return true
	}
	f.registry.Deliver(ev)
	return false
}

// alreadyProcessed is a test hook exposing the dedup check without marking.
func (f *Fabric) alreadyProcessed(id string) bool {
	if mem, ok := f.dedup.(*memoryDedup); ok {
		at, seen := mem.seen.Load(id)
		return seen && time.Since(at) < f.retention
	}
	return false
}

// Sweep drops dedup entries older than the retention window. The instance
// package's Lifecycle Timer calls this periodically instead of letting an
// in-memory backend's map grow without bound; backends with native expiry
// (Redis) no-op.
func (f *Fabric) Sweep() {
	f.dedup.Sweep(f.retention)
}

// ClearDedup empties the in-memory dedup backend, called by the Lifecycle
// Timer when no sockets remain attached to the instance (§4.9). A Redis
// backend is left as it is; its keys expire by their own TTL.
func (f *Fabric) ClearDedup() {
	if mem, ok := f.dedup.(*memoryDedup); ok {
		mem.Clear()
	}
}
