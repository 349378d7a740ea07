package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestTokenBucketBurst verifies that the bucket admits exactly its burst
// capacity before throttling.
func TestTokenBucketBurst(t *testing.T) {
	tb := newTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.allow(), "frame %d should be within burst", i)
	}
	assert.False(t, tb.allow(), "burst exhausted, frame must be throttled")
}

// TestTokenBucketRefill verifies tokens come back over time.
func TestTokenBucketRefill(t *testing.T) {
	tb := newTokenBucket(1, 10*time.Millisecond)

	assert.True(t, tb.allow())
	assert.False(t, tb.allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, tb.allow(), "token should have refilled")
}

// TestTokenBucketDefensiveDefaults verifies nonsense parameters are clamped.
func TestTokenBucketDefensiveDefaults(t *testing.T) {
	tb := newTokenBucket(0, 0)

	assert.True(t, tb.allow())
	assert.False(t, tb.allow())
}
