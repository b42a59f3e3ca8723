package chanx

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleFirstWaitFiresImmediately(t *testing.T) {
	c := NewThrottleChannel(time.Hour)
	assert.True(t, c.WaitFor(0))
	assert.False(t, c.WaitFor(0))
}

func TestThrottleNegativeIntervalClamped(t *testing.T) {
	c := NewThrottleChannel(-time.Second)
	assert.Equal(t, time.Duration(0), c.Interval())
	assert.True(t, c.WaitFor(0))
	assert.True(t, c.WaitFor(0))
}

func TestThrottleSpacing(t *testing.T) {
	const delta = 15 * time.Millisecond
	c := NewThrottleChannel(delta)

	var fires []time.Time
	deadline := time.Now().Add(8 * delta)
	for time.Now().Before(deadline) {
		if c.WaitFor(0) {
			// next is anchored at the instant the channel fired.
			fires = append(fires, c.next.Add(-c.delta))
		}
	}

	require.GreaterOrEqual(t, len(fires), 2)
	for i := 1; i < len(fires); i++ {
		assert.GreaterOrEqual(t, fires[i].Sub(fires[i-1]), delta,
			"fires %d and %d are too close", i-1, i)
	}
}

func TestThrottleBlockingWaitSlides(t *testing.T) {
	const delta = 20 * time.Millisecond
	c := NewThrottleChannel(delta)
	require.True(t, c.WaitFor(0))

	start := time.Now()
	require.True(t, c.WaitFor(time.Second))
	assert.GreaterOrEqual(t, time.Since(start), delta-time.Millisecond)

	// Anchored to the last fire, not a grid.
	assert.False(t, c.WaitFor(delta/4))
}

func TestThrottleShortWaitTimesOut(t *testing.T) {
	c := NewThrottleChannel(time.Hour)
	require.True(t, c.WaitFor(0))
	assert.False(t, c.WaitFor(5*time.Millisecond))
}

func TestThrottleConcurrentWaitersShareOneFire(t *testing.T) {
	const delta = 50 * time.Millisecond
	c := NewThrottleChannel(delta)
	require.True(t, c.WaitFor(0))

	// All waiters give up before a second interval could pass.
	var fires atomic.Int32
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.WaitFor(delta + delta/2) {
				fires.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fires.Load(), "one fire per interval across waiters")
}
