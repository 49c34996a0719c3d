package signal

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dkeye/Classroom/internal/domain"
)

// RoomRateLimiter gives every user a token bucket of limit chat frames
// refilled over interval.
type RoomRateLimiter struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[domain.UserID]*rate.Limiter
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		every:   rate.Limit(float64(limit) / interval.Seconds()),
		burst:   limit,
		now:     time.Now,
		buckets: make(map[domain.UserID]*rate.Limiter),
	}
}

func (rl *RoomRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[uid]
	if !ok {
		b = rate.NewLimiter(rl.every, rl.burst)
		rl.buckets[uid] = b
	}
	rl.mu.Unlock()
	return b.AllowN(rl.now(), 1)
}

// Forget drops the bucket of a user that went away.
func (rl *RoomRateLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	delete(rl.buckets, uid)
	rl.mu.Unlock()
}
