package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomRateLimiter_BurstThenRefill(t *testing.T) {
	req := require.New(t)
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRoomRateLimiter(2, time.Second)
	rl.now = func() time.Time { return clock }

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	req.True(rl.Allow("bob"), "limits are per user")

	clock = clock.Add(1100 * time.Millisecond)
	req.True(rl.Allow("alice"))
}

func TestRoomRateLimiter_Forget(t *testing.T) {
	req := require.New(t)
	rl := NewRoomRateLimiter(1, time.Minute)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	rl.Forget("alice")
	req.True(rl.Allow("alice"))
}

func TestRoomRateLimiter_PartialRefill(t *testing.T) {
	req := require.New(t)
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRoomRateLimiter(4, time.Second)
	rl.now = func() time.Time { return clock }

	for range 4 {
		req.True(rl.Allow("alice"))
	}
	req.False(rl.Allow("alice"))

	// a quarter of the interval buys one more frame, not a full burst
	clock = clock.Add(260 * time.Millisecond)
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
}
