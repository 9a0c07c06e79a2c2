package instance

import (
	"strings"

	"meshrelay.dev/pkg/app/config"
	"meshrelay.dev/pkg/encoders/event"
)

// Moderation holds the admission-time predicates over author, kind,
// content and tags (§4.3 step 7): author not on the blocklist, kind in the
// allowlist (if one is configured), content free of blocked substrings,
// every tag name passing the tag allowlist (if one is configured). The
// gift-wrap kind is exempted from the author-blocklist test so a blocked
// author's messages-to-others can't be inferred from relay refusal.
type Moderation struct {
	owners       map[string]struct{}
	blocked      map[string]struct{}
	allowedKinds map[int]struct{}
	blockedSubs  []string
	allowedTags  map[string]struct{}
	giftWrapKind int
}

func newModeration(cfg *config.C) Moderation {
	m := Moderation{
		owners:       toSet(cfg.Owners),
		blocked:      toSet(cfg.Blocklist),
		blockedSubs:  cfg.BlockedSubstrings,
		giftWrapKind: cfg.GiftWrapKind,
	}
	if len(cfg.AllowedKinds) > 0 {
		m.allowedKinds = make(map[int]struct{}, len(cfg.AllowedKinds))
		for _, k := range cfg.AllowedKinds {
			m.allowedKinds[k] = struct{}{}
		}
	}
	if len(cfg.AllowedTags) > 0 {
		m.allowedTags = toSet(cfg.AllowedTags)
	}
	return m
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// Check runs every moderation predicate against ev, returning the first
// violated rule's detail, or "" if ev is admissible.
func (m Moderation) Check(ev *event.E) (violation string) {
	_, isOwner := m.owners[ev.Pubkey]
	if !isOwner {
		if _, blocked := m.blocked[ev.Pubkey]; blocked && int(ev.Kind) != m.giftWrapKind {
			return "pubkey"
		}
	}
	if m.allowedKinds != nil {
		if _, ok := m.allowedKinds[int(ev.Kind)]; !ok {
			return "kind"
		}
	}
	for _, sub := range m.blockedSubs {
		if sub != "" && strings.Contains(ev.Content, sub) {
			return "content"
		}
	}
	if m.allowedTags != nil {
		for _, t := range ev.Tags {
			if len(t) == 0 {
				continue
			}
			if _, ok := m.allowedTags[t[0]]; !ok {
				return "tag"
			}
		}
	}
	return ""
}
