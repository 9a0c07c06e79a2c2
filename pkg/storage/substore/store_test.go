package substore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/utils/context"
)

func newTestStore(t *testing.T) *D {
	t.Helper()
	ctx, cancel := context.Cancel(context.Bg())
	d, err := New(ctx, cancel, t.TempDir(), "error")
	require.NoError(t, err)
	t.Cleanup(cancel)
	return d
}

func TestSaveAndLoadSubscriptionsRoundTrips(t *testing.T) {
	d := newTestStore(t)
	limit := 10
	subs := map[string][]*filter.F{
		"sub1": {{Kinds: []int{1}, Limit: &limit}},
	}
	require.NoError(t, d.SaveSubscriptions("sess1", subs))
	got, err := d.LoadSubscriptions("sess1")
	require.NoError(t, err)
	require.Len(t, got["sub1"], 1)
	require.Equal(t, []int{1}, got["sub1"][0].Kinds)
}

func TestLoadSubscriptionsMissingSessionReturnsEmpty(t *testing.T) {
	d := newTestStore(t)
	got, err := d.LoadSubscriptions("nope")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDeleteSubscriptionsRemovesRecord(t *testing.T) {
	d := newTestStore(t)
	require.NoError(t, d.SaveSubscriptions("sess1", map[string][]*filter.F{"s": {{}}}))
	require.NoError(t, d.DeleteSubscriptions("sess1"))
	got, err := d.LoadSubscriptions("sess1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSessionIDsListsPersistedSessions(t *testing.T) {
	d := newTestStore(t)
	require.NoError(t, d.SaveSubscriptions("sess1", map[string][]*filter.F{"s": {{}}}))
	require.NoError(t, d.SaveSubscriptions("sess2", map[string][]*filter.F{"s": {{}}}))
	ids, err := d.SessionIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sess1", "sess2"}, ids)
}

func TestAlarmRoundTripsAndClears(t *testing.T) {
	d := newTestStore(t)
	_, ok, err := d.GetAlarm()
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Now().Add(time.Minute).Truncate(time.Millisecond)
	require.NoError(t, d.SetAlarm(at))
	got, ok, err := d.GetAlarm()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(at))

	require.NoError(t, d.ClearAlarm())
	_, ok, err = d.GetAlarm()
	require.NoError(t, err)
	require.False(t, ok)
}
