package paymentcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/utils/context"
)

type fakeOracle struct {
	calls int
	paid  map[string]bool
}

func (f *fakeOracle) HasPaid(ctx context.T, pubkey string) (bool, error) {
	f.calls++
	return f.paid[pubkey], nil
}

func TestHasPaidCachesWithinTTL(t *testing.T) {
	oracle := &fakeOracle{paid: map[string]bool{"a": true}}
	c := New(oracle, 10, time.Minute)
	ok, err := c.HasPaid(nil, "a")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.HasPaid(nil, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, oracle.calls)
}

func TestHasPaidEvictsOldestOverCap(t *testing.T) {
	oracle := &fakeOracle{paid: map[string]bool{}}
	c := New(oracle, 2, time.Minute)
	_, _ = c.HasPaid(nil, "a")
	_, _ = c.HasPaid(nil, "b")
	_, _ = c.HasPaid(nil, "c")
	require.LessOrEqual(t, c.Len(), 2)
}
