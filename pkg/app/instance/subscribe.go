package instance

import (
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/interfaces/store"
	"meshrelay.dev/pkg/protocol/auth"
	"meshrelay.dev/pkg/protocol/reason"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/context"
)

// ReqResult is the outcome of admitting a REQ: the historical events to
// emit before EOSE, and whether the subscription should be kept open for
// live matches afterward.
type ReqResult struct {
	Events   []*event.E
	KeepOpen bool
}

// MaxSubscriptionIDLength is the hard cap on a REQ/CLOSE subscription id's
// length (§4.4).
const MaxSubscriptionIDLength = 64

func (inst *Instance) forbidsSubscribeKind(kind int) bool {
	for _, k := range inst.Config.ForbiddenSubscribeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// AcceptReq runs auth and rate-limit admission for a REQ, then serves
// historical replay through the Query Cache (§4.4, §4.5): each filter's
// limit is clamped to the configured hard cap, a zero limit skips the
// storage call entirely, and privileged events are withheld from sessions
// that aren't their author or a named participant.
func (inst *Instance) AcceptReq(
	ctx context.T, sess *ws.Session, subID string, filters []*filter.F,
) (res ReqResult, ok bool, reply string) {
	if len(subID) == 0 || len(subID) > MaxSubscriptionIDLength {
		return res, false, reason.F(reason.Invalid, "subscription id must be 1-%d characters", MaxSubscriptionIDLength)
	}
	if inst.AuthRequired() && !sess.IsAuthed() {
		return res, false, reason.Bare(reason.AuthRequired)
	}
	if !sess.Limiters.AllowSubscribe() {
		return res, false, reason.F(reason.RateLimited, "slow down")
	}
	for _, f := range filters {
		for _, k := range f.Kinds {
			if inst.forbidsSubscribeKind(k) {
				return res, false, reason.F(reason.Invalid, "kind %d may not be subscribed to", k)
			}
		}
	}

	seen := make(map[string]struct{})
	keepOpen := false
	for _, f := range filters {
		f.ClampLimit(inst.Config.HistoricalReplayLimit)
		if f.Limit != nil && *f.Limit == 0 {
			continue
		}
		page, err := inst.QueryCache.Fetch(
			f.CacheKey()+"|bm:"+sess.Bookmark, f.Kinds, f.Authors,
			func() (store.Page, error) {
				return inst.Store.QueryEvents(ctx, f, sess.Bookmark)
			},
		)
		if err != nil {
			return res, false, reason.F(reason.Error, "database error")
		}
		for _, ev := range page.Events {
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			if ev.Kind.IsPrivileged() && !auth.CheckPrivilege(sess.AuthedPubkey(), ev) {
				continue
			}
			seen[ev.ID] = struct{}{}
			res.Events = append(res.Events, ev)
		}
		if !f.IsIDOnly() {
			keepOpen = true
		}
	}
	res.KeepOpen = keepOpen
	return res, true, ""
}
