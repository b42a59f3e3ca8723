package chanx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelCapabilities(t *testing.T) {
	cases := []struct {
		name   string
		ch     Channel
		kind   Kind
		async  bool
		shared bool
	}{
		{"true", NewTrueChannel(), KindEvent, true, true},
		{"false", NewFalseChannel(), KindEvent, true, true},
		{"timer", NewTimerChannel(time.Second), KindEvent, true, true},
		{"throttle", NewThrottleChannel(time.Second), KindEvent, true, true},
		{"generator", NewGeneratorChannel(func() int { return 1 }), KindMessage, false, false},
		{"queue", NewQueueChannel[int](), KindMessage, true, true},
		{"value", NewValueChannel(0), KindMessage, true, true},
		{"buffer", NewBufferChannel(), KindStream, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.ch.Kind())
			assert.Equal(t, tc.async, tc.ch.IsAsync())
			assert.Equal(t, tc.shared, tc.ch.IsShared())
		})
	}
}

func TestCloseIsPermanentAndWakesWaiters(t *testing.T) {
	chans := map[string]Channel{
		"true":      NewTrueChannel(),
		"false":     NewFalseChannel(),
		"timer":     NewTimerChannel(time.Hour),
		"throttle":  NewThrottleChannel(time.Hour),
		"generator": NewGeneratorChannel(func() string { return "x" }),
		"queue":     NewQueueChannel[int](),
		"value":     NewValueChannel("a"),
		"buffer":    NewBufferChannel(),
	}
	for name, c := range chans {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.IsClosed())
			c.Close()
			c.Close()
			assert.True(t, c.IsClosed())
			assert.True(t, c.WaitFor(0), "closed channel must be ready")
			assert.True(t, c.WaitFor(time.Hour), "closed channel must not block")
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "event", KindEvent.String())
	assert.Equal(t, "message", KindMessage.String())
	assert.Equal(t, "stream", KindStream.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestWaitContext(t *testing.T) {
	c := NewFalseChannel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Wait(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Close()
	}()
	assert.NoError(t, Wait(context.Background(), c))
}

func TestReady(t *testing.T) {
	assert.True(t, Ready(NewTrueChannel()))
	assert.False(t, Ready(NewFalseChannel()))
}
