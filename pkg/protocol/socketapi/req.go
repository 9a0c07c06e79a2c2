package socketapi

import (
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/envelopes/closedenvelope"
	"meshrelay.dev/pkg/encoders/envelopes/eoseenvelope"
	"meshrelay.dev/pkg/encoders/envelopes/eventenvelope"
	"meshrelay.dev/pkg/encoders/envelopes/reqenvelope"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
)

// handleReq unmarshals a REQ, admits it, serves historical replay through
// the Query Cache, registers the subscription for live delivery (§4.4)
// unless the filter is id-only, which can never match a future event, and
// then emits EOSE.
func handleReq(ctx context.T, inst *instance.Instance, sess *ws.Session, msg []byte) {
	var env reqenvelope.T
	if err := env.Unmarshal(msg); chk.E(err) {
		writeNotice(sess, "invalid: could not parse REQ")
		return
	}
	res, ok, reply := inst.AcceptReq(ctx, sess, env.Subscription, env.Filters)
	if !ok {
		writeClosed(sess, env.Subscription, reply)
		return
	}
	for _, ev := range res.Events {
		b, err := eventenvelope.NewFrom(env.Subscription, ev).Marshal()
		if chk.E(err) {
			continue
		}
		if _, err = sess.Write(b); err != nil {
			return
		}
	}
	if res.KeepOpen {
		sess.AddSubscription(env.Subscription, env.Filters)
		inst.Registry.Install(sess, env.Subscription, env.Filters)
		inst.PersistSubscriptions(sess)
	}
	// An id-only filter can never match a future event (ids are content
	// hashes), so it is simply never registered; no further frame is
	// needed after EOSE.

	eose, err := eoseenvelope.NewFrom(env.Subscription).Marshal()
	if !chk.E(err) {
		_, _ = sess.Write(eose)
	}
}

func writeClosed(sess *ws.Session, sub, reply string) {
	b, err := closedenvelope.NewFrom(sub, reply).Marshal()
	if chk.E(err) {
		return
	}
	_, _ = sess.Write(b)
}
