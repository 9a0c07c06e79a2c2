package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowPublishRespectsCapacity(t *testing.T) {
	b := New(1, 2, 1, 2, nil)
	require.True(t, b.AllowPublish(1))
	require.True(t, b.AllowPublish(1))
	require.False(t, b.AllowPublish(1))
}

func TestAllowPublishExemptKindBypassesBucket(t *testing.T) {
	b := New(1, 1, 1, 1, []int{0})
	for i := 0; i < 5; i++ {
		require.True(t, b.AllowPublish(0))
	}
	require.True(t, b.AllowPublish(1))
	require.False(t, b.AllowPublish(1))
}
