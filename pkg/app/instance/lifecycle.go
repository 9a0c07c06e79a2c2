package instance

import (
	"time"

	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
)

// RunLifecycleTimer is the idle-alarm-driven housekeeping loop (§4.9), the
// Go-idiomatic stand-in for a Durable Object's setAlarm/alarm() cycle: on
// every tick it sweeps the Broadcast Fabric's dedup map of entries past
// their retention window. While no sockets are attached but IdleTimeout
// has not yet elapsed, it persists the wake time at which the instance
// will flush; once no sockets have been attached for IdleTimeout it
// flushes every in-memory cache, purges subscription records orphaned by
// a session that never came back, and clears that alarm record. It exits
// when ctx is cancelled.
func (inst *Instance) RunLifecycleTimer(ctx context.T, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	var idleSince time.Time
	for {
		select {
		case <-ctx.Done():
			log.D.Ln("lifecycle timer stopping")
			return
		case <-t.C:
			inst.Fabric.Sweep()
			if n := inst.SessionCount(); n > 0 {
				idleSince = time.Time{}
				log.T.F("lifecycle sweep: %d attached sockets", n)
				continue
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			if time.Since(idleSince) < inst.Config.IdleTimeout {
				inst.scheduleAlarm(idleSince.Add(inst.Config.IdleTimeout))
				continue
			}
			inst.flushIdle()
		}
	}
}

// flushIdle drops every piece of in-memory state that only exists to serve
// currently-attached sockets, now that none remain: the Query Cache, the
// Payment Cache, and the Broadcast Fabric's in-memory dedup record (a
// Redis dedup backend is left to its own key expiry). It also purges
// any persisted subscription list whose session never reattached before
// going idle, since nothing will ever rehydrate it (§4.9, §6).
func (inst *Instance) flushIdle() {
	inst.QueryCache.Clear()
	if inst.PaymentCache != nil {
		inst.PaymentCache.Clear()
	}
	inst.Fabric.ClearDedup()
	inst.sweepOrphanedSubscriptions()
	if inst.Durable != nil {
		chk.E(inst.Durable.ClearAlarm())
	}
	log.T.Ln("lifecycle sweep: instance idle, caches flushed")
}

// sweepOrphanedSubscriptions deletes every persisted subscription record
// whose session id has no live in-memory session: the session closed
// without a CLOSE frame (a dropped connection, a crash) and will never be
// rehydrated, so the record would otherwise persist forever.
func (inst *Instance) sweepOrphanedSubscriptions() {
	if inst.Durable == nil {
		return
	}
	ids, err := inst.Durable.SessionIDs()
	if chk.E(err) {
		return
	}
	for _, id := range ids {
		if _, ok := inst.Lookup(id); ok {
			continue
		}
		chk.E(inst.Durable.DeleteSubscriptions(id))
	}
}

// scheduleAlarm persists the next wake time, mirroring a Durable Object
// re-arming its alarm on every tick that finds the instance still
// (not-yet-fully) idle, so an operator inspecting the durable store can see
// when the instance is expected to flush.
func (inst *Instance) scheduleAlarm(at time.Time) {
	if inst.Durable == nil {
		return
	}
	chk.E(inst.Durable.SetAlarm(at))
}
