package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/subscription"
	"meshrelay.dev/pkg/utils/context"
)

type recordingWriter struct {
	written [][]byte
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.written = append(w.written, p)
	return len(p), nil
}
func (w *recordingWriter) AuthedPubkey() string { return "" }

func TestPublishDeliversLocallyAndMarksProcessed(t *testing.T) {
	reg := subscription.NewRegistry()
	w := &recordingWriter{}
	reg.Install(w, "sub1", []*filter.F{{Kinds: []int{1}}})
	f := New("instance-a", []string{"instance-a", "instance-b"}, nil, "", time.Second, time.Minute, reg, nil)
	f.Publish(context.Bg(), &event.E{ID: "e1", Kind: 1})
	require.Len(t, w.written, 1)
	require.True(t, f.alreadyProcessed("e1"))
}

func TestReceiveBroadcastDeduplicates(t *testing.T) {
	reg := subscription.NewRegistry()
	f := New("instance-a", nil, nil, "", time.Second, time.Minute, reg, nil)
	ev := &event.E{ID: "e1", Kind: 1}
	require.False(t, f.ReceiveBroadcast(ev, "instance-b"))
	require.True(t, f.ReceiveBroadcast(ev, "instance-b"))
}

func TestResolveURLUsesHint(t *testing.T) {
	f := New("a", nil, map[string]string{"b": "b.internal:8080"}, "", time.Second, time.Minute, subscription.NewRegistry(), nil)
	require.Equal(t, "https://b.internal:8080/do-broadcast", f.resolveURL("b"))
	require.Equal(t, "https://c/do-broadcast", f.resolveURL("c"))
}
