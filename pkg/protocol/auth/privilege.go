package auth

import "meshrelay.dev/pkg/encoders/event"

// CheckPrivilege reports whether a privileged event (direct message or
// gift wrap) may be delivered to a connection authenticated as
// authedPubkey: either that pubkey authored it, or it is named in one of
// the event's "p" mention tags.
func CheckPrivilege(authedPubkey string, ev *event.E) (privileged bool) {
	if !ev.Kind.IsPrivileged() {
		return
	}
	if authedPubkey == "" {
		return
	}
	if ev.Pubkey == authedPubkey {
		return true
	}
	for _, p := range ev.TagValues("p") {
		if p == authedPubkey {
			return true
		}
	}
	return false
}
