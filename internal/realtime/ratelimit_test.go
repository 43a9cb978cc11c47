package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTokenBucket(3, time.Second)
	b.lastCheck = now
	b.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, b.allow(), "message %d within burst", i)
	}
	require.False(t, b.allow())

	now = now.Add(time.Second / 3)
	require.True(t, b.allow())
	require.False(t, b.allow())

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		require.True(t, b.allow())
	}
	require.False(t, b.allow())
}

func TestTokenBucket_InvalidSettingsFallBack(t *testing.T) {
	b := newTokenBucket(0, 0)
	require.Equal(t, float64(1), b.capacity)
	require.Equal(t, float64(1), b.rate)
}
