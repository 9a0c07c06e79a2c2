package socketapi

import (
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/envelopes/closeenvelope"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
)

// handleClose unmarshals a CLOSE and removes the named subscription from
// both the session's own map and the live Subscription Registry.
func handleClose(inst *instance.Instance, sess *ws.Session, msg []byte) {
	var env closeenvelope.T
	if err := env.Unmarshal(msg); chk.E(err) {
		writeNotice(sess, "invalid: could not parse CLOSE")
		return
	}
	sess.RemoveSubscription(env.Subscription)
	inst.Registry.Cancel(sess, env.Subscription)
	inst.PersistSubscriptions(sess)
}
