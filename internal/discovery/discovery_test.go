package discovery

import (
	"testing"
	"time"

	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	"github.com/stretchr/testify/assert"
)

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestEffectiveAvailabilityNoLastSeenIsZero(t *testing.T) {
	a := &postgres.Agent{AvailabilityScore: 1.0}
	got := effectiveAvailability(a, time.Now(), time.Minute)
	assert.Equal(t, 0.0, got)
}

func TestEffectiveAvailabilityStaleIsZero(t *testing.T) {
	ttl := time.Minute
	stale := time.Now().Add(-3 * ttl)
	a := &postgres.Agent{AvailabilityScore: 1.0, LastSeen: &stale}
	got := effectiveAvailability(a, time.Now(), ttl)
	assert.Equal(t, 0.0, got)
}

func TestEffectiveAvailabilityFreshIsPreserved(t *testing.T) {
	ttl := time.Minute
	fresh := time.Now().Add(-10 * time.Second)
	a := &postgres.Agent{AvailabilityScore: 0.8, LastSeen: &fresh}
	got := effectiveAvailability(a, time.Now(), ttl)
	assert.Equal(t, 0.8, got)
}

func TestMergeKeyDedupesSameAgentAndCapability(t *testing.T) {
	assert.Equal(t, mergeKey("a", "cap1"), mergeKey("a", "cap1"))
	assert.NotEqual(t, mergeKey("a", "cap1"), mergeKey("a", "cap2"))
	assert.NotEqual(t, mergeKey("a", "cap1"), mergeKey("b", "cap1"))
}
