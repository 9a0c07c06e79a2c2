package instance

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/app/config"
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/interfaces/store"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/utils/context"
)

type fakeStore struct {
	saved   []*event.E
	events  []*event.E
	failAll bool
}

func (f *fakeStore) QueryEvents(ctx context.T, flt *filter.F, bookmark string) (store.Page, error) {
	var out []*event.E
	for _, ev := range f.events {
		if flt.Matches(ev) {
			out = append(out, ev)
		}
	}
	return store.Page{Events: out}, nil
}

func (f *fakeStore) SaveEvent(ctx context.T, ev *event.E) error {
	f.saved = append(f.saved, ev)
	return nil
}

type acceptAllSigner struct{}

func (acceptAllSigner) Pub() []byte                      { return nil }
func (acceptAllSigner) Sign(id []byte) ([]byte, error)   { return nil, nil }
func (acceptAllSigner) Verify(id, sig []byte) (bool, error) { return true, nil }
func (acceptAllSigner) InitPub(pubkey []byte) error          { return nil }

func testConfig() *config.C {
	return &config.C{
		PublishRateLimit:   100,
		PublishBurst:       100,
		SubscribeRateLimit: 100,
		SubscribeBurst:     100,
		QueryCacheTTL:      time.Minute,
		QueryCacheSoftCap:  100,
		HistoricalReplayLimit: 500,
	}
}

func newTestInstance(st store.I) *Instance {
	return New(testConfig(), st, acceptAllSigner{}, nil, nil)
}

func newTestSession(inst *Instance) *ws.Session {
	return ws.New("sess1", nil, &http.Request{Header: http.Header{}}, "inst1", "region1", inst.NewLimiters())
}

const (
	testPubkey = "e1fe3c0d9b6e1b6a9b8c1f9f8c9d9e1b6a9b8c1f9f8c9d9e1b6a9b8c1f9f8c9d"
	testSig    = "a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1" +
		"a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1"
)

func validShapedEvent(kind event.Kind) *event.E {
	ev := &event.E{Pubkey: testPubkey, Kind: kind, CreatedAt: 1700000000, Sig: testSig}
	id, err := ev.ComputeID()
	if err != nil {
		panic(err)
	}
	ev.ID = id
	return ev
}

func TestAcceptEventSavesAndBroadcasts(t *testing.T) {
	st := &fakeStore{}
	inst := newTestInstance(st)
	sess := newTestSession(inst)
	ev := validShapedEvent(1)
	ok, reply := inst.AcceptEvent(context.Bg(), sess, ev)
	require.True(t, ok, reply)
	require.Len(t, st.saved, 1)
}

func TestAcceptEventRejectsMalshapedEvent(t *testing.T) {
	st := &fakeStore{}
	inst := newTestInstance(st)
	sess := newTestSession(inst)
	ev := &event.E{ID: "e1", Kind: 1}
	ok, reply := inst.AcceptEvent(context.Bg(), sess, ev)
	require.False(t, ok)
	require.Contains(t, reply, "invalid")
}

func TestAcceptEventRejectsAuthKind(t *testing.T) {
	st := &fakeStore{}
	inst := newTestInstance(st)
	sess := newTestSession(inst)
	ev := validShapedEvent(22242)
	ok, reply := inst.AcceptEvent(context.Bg(), sess, ev)
	require.False(t, ok)
	require.Contains(t, reply, "invalid")
}

func TestAcceptReqReturnsMatchingHistoricalEvents(t *testing.T) {
	st := &fakeStore{events: []*event.E{{ID: "e1", Kind: 1}, {ID: "e2", Kind: 2}}}
	inst := newTestInstance(st)
	sess := newTestSession(inst)
	res, ok, reply := inst.AcceptReq(context.Bg(), sess, "sub1", []*filter.F{{Kinds: []int{1}}})
	require.True(t, ok, reply)
	require.Len(t, res.Events, 1)
	require.Equal(t, "e1", res.Events[0].ID)
}

func TestAcceptReqRejectsEmptySubID(t *testing.T) {
	inst := newTestInstance(&fakeStore{})
	sess := newTestSession(inst)
	_, ok, reply := inst.AcceptReq(context.Bg(), sess, "", []*filter.F{{}})
	require.False(t, ok)
	require.Contains(t, reply, "invalid")
}

func TestAcceptReqRejectsOverlongSubID(t *testing.T) {
	inst := newTestInstance(&fakeStore{})
	sess := newTestSession(inst)
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	_, ok, reply := inst.AcceptReq(context.Bg(), sess, string(long), []*filter.F{{}})
	require.False(t, ok)
	require.Contains(t, reply, "invalid")
}

func TestAcceptReqRejectsForbiddenKind(t *testing.T) {
	cfg := testConfig()
	cfg.ForbiddenSubscribeKinds = []int{4}
	inst := New(cfg, &fakeStore{}, acceptAllSigner{}, nil, nil)
	sess := newTestSession(inst)
	_, ok, reply := inst.AcceptReq(context.Bg(), sess, "sub1", []*filter.F{{Kinds: []int{4}}})
	require.False(t, ok)
	require.Contains(t, reply, "invalid")
}
