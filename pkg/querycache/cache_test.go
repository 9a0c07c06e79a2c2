package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/interfaces/store"
)

func TestFetchDeduplicatesWithinTTL(t *testing.T) {
	c := New(time.Minute, 100)
	calls := 0
	load := func() (store.Page, error) {
		calls++
		return store.Page{Events: []*event.E{{ID: "e1"}}}, nil
	}
	_, err := c.Fetch("key1", []int{1}, []string{"author1"}, load)
	require.NoError(t, err)
	_, err = c.Fetch("key1", []int{1}, []string{"author1"}, load)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestFetchReloadsAfterTTLExpiry(t *testing.T) {
	c := New(time.Millisecond, 100)
	calls := 0
	load := func() (store.Page, error) {
		calls++
		return store.Page{}, nil
	}
	_, _ = c.Fetch("key1", nil, nil, load)
	time.Sleep(5 * time.Millisecond)
	_, _ = c.Fetch("key1", nil, nil, load)
	require.Equal(t, 2, calls)
}

func TestInvalidateForEventDropsMatchingEntries(t *testing.T) {
	c := New(time.Minute, 100)
	load := func() (store.Page, error) { return store.Page{}, nil }
	_, _ = c.Fetch("key1", []int{1}, []string{"author1"}, load)
	require.Equal(t, 1, c.Len())
	c.InvalidateForEvent(&event.E{Kind: 1, Pubkey: "author1"})
	require.Equal(t, 0, c.Len())
}

func TestClearEmptiesCacheAndIndex(t *testing.T) {
	c := New(time.Minute, 100)
	load := func() (store.Page, error) { return store.Page{}, nil }
	_, _ = c.Fetch("key1", []int{1}, []string{"author1"}, load)
	require.Equal(t, 1, c.Len())
	c.Clear()
	require.Equal(t, 0, c.Len())
	c.InvalidateForEvent(&event.E{Kind: 1, Pubkey: "author1"})
}

func TestEvictDropsLowestScoring(t *testing.T) {
	c := New(time.Minute, 4)
	load := func() (store.Page, error) { return store.Page{}, nil }
	_, _ = c.Fetch("a", nil, nil, load)
	for i := 0; i < 3; i++ {
		// cache hits raise a's access count, and so its score
		_, _ = c.Fetch("a", nil, nil, load)
	}
	for i := 1; i < 6; i++ {
		_, _ = c.Fetch(string(rune('a'+i)), nil, nil, load)
	}
	// the 5th and 6th inserts each exceed the cap of 4 and drop 5/5 = 1 entry
	require.Equal(t, 4, c.Len())
	reloaded := false
	_, _ = c.Fetch("a", nil, nil, func() (store.Page, error) {
		reloaded = true
		return store.Page{}, nil
	})
	require.False(t, reloaded)
}
