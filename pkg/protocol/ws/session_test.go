package ws

import (
	"testing"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/ratelimit"
)

func TestSessionSubscriptionLifecycle(t *testing.T) {
	s := &Session{subs: make(map[string][]*filter.F), Limiters: ratelimit.New(1, 1, 1, 1, nil)}
	s.AddSubscription("s1", []*filter.F{{}})
	subs := s.Subscriptions()
	require.Len(t, subs, 1)
	require.True(t, s.RemoveSubscription("s1"))
	require.False(t, s.RemoveSubscription("s1"))
}

func TestSessionAuthState(t *testing.T) {
	s := &Session{subs: make(map[string][]*filter.F)}
	require.False(t, s.IsAuthed())
	s.SetChallenge("abc")
	require.Equal(t, "abc", s.Challenge())
	s.SetAuthedPubkey("pubkey1")
	require.True(t, s.IsAuthed())
	require.Equal(t, "pubkey1", s.AuthedPubkey())
}

func TestAttachmentRoundTrip(t *testing.T) {
	a := &Attachment{SessionID: "id1", Bookmark: "bm", Host: "host", InstanceName: "inst1"}
	b, err := a.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalAttachment(b)
	require.NoError(t, err)
	require.Equal(t, a, got)
}
