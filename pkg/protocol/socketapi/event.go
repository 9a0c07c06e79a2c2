package socketapi

import (
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/envelopes/eventenvelope"
	"meshrelay.dev/pkg/encoders/envelopes/okenvelope"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
)

// handleEvent unmarshals an EVENT submission and runs it through the
// Admission Pipeline, always replying with exactly one OK frame (§7).
func handleEvent(ctx context.T, inst *instance.Instance, sess *ws.Session, msg []byte) {
	var sub eventenvelope.Submission
	if err := sub.Unmarshal(msg); chk.E(err) || sub.Event == nil {
		writeNotice(sess, "invalid: could not parse EVENT")
		return
	}
	ok, reply := inst.AcceptEvent(ctx, sess, sub.Event)
	resp := okenvelope.NewFrom(sub.Event.ID, ok, reply)
	b, err := resp.Marshal()
	if chk.E(err) {
		return
	}
	_, _ = sess.Write(b)
}
