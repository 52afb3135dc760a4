package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		res := rl.Allow("1.2.3.4", now)
		assert.True(t, res.Allowed)
	}
}

func TestRateLimiterRejectsNPlusOneth(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		rl.Allow("1.2.3.4", now)
	}
	res := rl.Allow("1.2.3.4", now)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()

	rl.Allow("1.2.3.4", now)
	res := rl.Allow("1.2.3.4", now.Add(61*time.Second))
	assert.True(t, res.Allowed)
}

func TestRateLimiterTracksIPsIndependently(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()

	assert.True(t, rl.Allow("1.1.1.1", now).Allowed)
	assert.True(t, rl.Allow("2.2.2.2", now).Allowed)
	assert.False(t, rl.Allow("1.1.1.1", now).Allowed)
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(500*time.Millisecond))
	assert.Equal(t, 2, RetryAfterSeconds(1001*time.Millisecond))
	assert.Equal(t, 0, RetryAfterSeconds(0))
}
