package socketapi

import (
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/envelopes"
	"meshrelay.dev/pkg/encoders/envelopes/noticeenvelope"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
)

// Dispatch identifies msg's envelope label and routes it to the matching
// handler. A JSON parse failure or an unrecognized label yields a single
// NOTICE frame and the connection continues (§7): only hard transport
// failures close the socket.
func Dispatch(ctx context.T, inst *instance.Instance, sess *ws.Session, msg []byte) {
	label, err := envelopes.Identify(msg)
	if err != nil {
		writeNotice(sess, "invalid: could not parse message")
		return
	}
	switch label {
	case envelopes.Event:
		handleEvent(ctx, inst, sess, msg)
	case envelopes.Req:
		handleReq(ctx, inst, sess, msg)
	case envelopes.Close:
		handleClose(inst, sess, msg)
	case envelopes.Auth:
		handleAuth(sess, inst, msg)
	default:
		writeNotice(sess, "unsupported: unknown envelope label")
	}
}

func writeNotice(sess *ws.Session, msg string) {
	b, err := noticeenvelope.NewFrom(msg).Marshal()
	if chk.E(err) {
		return
	}
	_, _ = sess.Write(b)
}
