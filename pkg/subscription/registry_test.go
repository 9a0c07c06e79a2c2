package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
)

type fakeWriter struct {
	pubkey  string
	written [][]byte
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	f.written = append(f.written, p)
	return len(p), nil
}
func (f *fakeWriter) AuthedPubkey() string { return f.pubkey }

func TestDeliverMatchesInstalledFilter(t *testing.T) {
	r := NewRegistry()
	w := &fakeWriter{}
	kind := 1
	r.Install(w, "sub1", []*filter.F{{Kinds: []int{kind}}})
	r.Deliver(&event.E{ID: "e1", Kind: event.Kind(kind)})
	require.Len(t, w.written, 1)
}

func TestDeliverSkipsAfterCancel(t *testing.T) {
	r := NewRegistry()
	w := &fakeWriter{}
	r.Install(w, "sub1", []*filter.F{{Kinds: []int{1}}})
	r.Cancel(w, "sub1")
	r.Deliver(&event.E{ID: "e1", Kind: 1})
	require.Empty(t, w.written)
}

func TestDeliverWithholdsPrivilegedEventFromUnrelatedSubscriber(t *testing.T) {
	r := NewRegistry()
	w := &fakeWriter{pubkey: "someone-else"}
	r.Install(w, "sub1", []*filter.F{{Kinds: []int{4}}})
	r.Deliver(&event.E{ID: "e1", Kind: 4, Pubkey: "author1"})
	require.Empty(t, w.written)
}

func TestDeliverAllowsPrivilegedEventToMentionedPubkey(t *testing.T) {
	r := NewRegistry()
	w := &fakeWriter{pubkey: "mentioned1"}
	r.Install(w, "sub1", []*filter.F{{Kinds: []int{4}}})
	r.Deliver(&event.E{
		ID: "e1", Kind: 4, Pubkey: "author1",
		Tags: [][]string{{"p", "mentioned1"}},
	})
	require.Len(t, w.written, 1)
}
