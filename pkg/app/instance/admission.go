package instance

import (
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/protocol/auth"
	"meshrelay.dev/pkg/protocol/reason"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/context"
)

// AcceptEvent runs the Admission Pipeline (§4.3) over an inbound EVENT in
// order: reserved-kind rejection, auth requirement, rate limiting,
// signature verification, payment gating, moderation, then storage write,
// cache invalidation and broadcast. It returns ok and, when ok is false,
// the reply reason to place in the OK envelope.
//
// Every step past rate-limiting that fails still leaves the connection
// open (§7): admission failure always yields exactly one OK frame, never a
// closed socket.
func (inst *Instance) AcceptEvent(ctx context.T, sess *ws.Session, ev *event.E) (ok bool, reply string) {
	if err := ev.ValidateShape(); err != nil {
		return false, reason.F(reason.Invalid, "%v", err)
	}
	if int(ev.Kind) == auth.Kind {
		return false, reason.F(reason.Invalid, "auth events are not published")
	}
	if inst.AuthRequired() && !sess.IsAuthed() {
		return false, reason.Bare(reason.AuthRequired)
	}
	if !sess.Limiters.AllowPublish(ev.Kind) {
		return false, reason.F(reason.RateLimited, "slow down")
	}
	verified, err := ev.Verify(inst.Signer)
	if err != nil {
		return false, reason.F(reason.Error, "signature check failed: %v", err)
	}
	if !verified {
		return false, reason.F(reason.Invalid, "bad signature or id")
	}
	if inst.Config.PayToRelayEnabled && inst.PaymentCache != nil {
		paid, err := inst.PaymentCache.HasPaid(ctx, ev.Pubkey)
		if err != nil {
			return false, reason.F(reason.Error, "payment check failed: %v", err)
		}
		if !paid {
			return false, reason.F(reason.Blocked, "unpaid")
		}
	}
	if violation := inst.moderation.Check(ev); violation != "" {
		return false, reason.F(reason.Blocked, violation)
	}
	if err = inst.Store.SaveEvent(ctx, ev); err != nil {
		return false, reason.F(reason.Error, "storage write failed: %v", err)
	}
	inst.QueryCache.InvalidateForEvent(ev)
	inst.Fabric.Publish(ctx, ev)
	return true, ""
}
