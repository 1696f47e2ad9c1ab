package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Window(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3)
	rl.now = func() time.Time { return now }
	metrics := &securityMetrics{}

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1", metrics), "request %d", i+1)
	}
	assert.False(t, rl.allow("1", metrics))
	assert.True(t, rl.allow("2", metrics), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.False(t, rl.allow("1", metrics), "still inside the window")

	now = now.Add(31 * time.Second)
	assert.True(t, rl.allow("1", metrics), "new window")
	assert.Equal(t, int64(2), metrics.snapshot().RateLimitHits)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(10)
	rl.now = func() time.Time { return now }

	rl.allow("idle", nil)
	now = now.Add(5 * time.Minute)
	rl.allow("active", nil)
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	_, idle := rl.clients["idle"]
	_, active := rl.clients["active"]
	assert.False(t, idle)
	assert.True(t, active)
}

func TestRateLimiter_DefaultsAndStop(t *testing.T) {
	rl := newRateLimiter(0)
	assert.Equal(t, 60, rl.perMinute)

	done := make(chan struct{})
	go func() {
		rl.startCleanup(time.Hour)
		close(done)
	}()
	rl.stop()
	rl.stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not stop")
	}
}
