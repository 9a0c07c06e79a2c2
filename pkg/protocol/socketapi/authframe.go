package socketapi

import (
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/encoders/envelopes/authenvelope"
	"meshrelay.dev/pkg/encoders/envelopes/okenvelope"
	"meshrelay.dev/pkg/protocol/auth"
	"meshrelay.dev/pkg/protocol/reason"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/chk"
)

// handleAuth validates a client's signed response to the session's
// outstanding challenge and records the authenticated pubkey on success.
func handleAuth(sess *ws.Session, inst *instance.Instance, msg []byte) {
	var env authenvelope.Response
	if err := env.Unmarshal(msg); chk.E(err) || env.Event == nil {
		writeNotice(sess, "invalid: could not parse AUTH")
		return
	}
	ok, err := auth.Validate(
		env.Event, sess.Challenge(), inst.ServiceURL(), inst.AuthTimeout(), inst.Signer,
	)
	var reply string
	if err != nil {
		reply = reason.F(reason.Error, "auth check failed: %v", err)
	} else if !ok {
		reply = reason.F(reason.Invalid, "auth challenge response did not validate")
	} else {
		sess.SetAuthedPubkey(env.Event.Pubkey)
	}
	resp := okenvelope.NewFrom(env.Event.ID, ok && err == nil, reply)
	b, merr := resp.Marshal()
	if chk.E(merr) {
		return
	}
	_, _ = sess.Write(b)
}

func writeAuthChallenge(sess *ws.Session) {
	b, err := authenvelope.NewChallenge(sess.Challenge()).Marshal()
	if chk.E(err) {
		return
	}
	_, _ = sess.Write(b)
}
