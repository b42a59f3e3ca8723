package chanx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueueChannel[int]()

	_, ok := q.Read()
	assert.False(t, ok, "empty open queue")
	assert.False(t, q.WaitFor(0))

	for i := range 10 {
		require.True(t, q.Write(i))
	}
	assert.Equal(t, 10, q.Len())
	assert.True(t, q.WaitFor(0))

	for i := range 10 {
		v, ok := q.Read()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = q.Read()
	assert.False(t, ok)
}

func TestQueueClosedRejectsWritesAndReads(t *testing.T) {
	q := NewQueueChannel[string]()
	require.True(t, q.Write("a"))
	q.Close()

	assert.False(t, q.Write("b"))
	_, ok := q.Read()
	assert.False(t, ok, "reads always fail once closed")
	assert.True(t, q.WaitFor(0))
}

func TestQueueClear(t *testing.T) {
	q := NewQueueChannel[int]()
	q.Write(1)
	q.Write(2)
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.WaitFor(0))
}

func TestQueueWaitWakesOnWrite(t *testing.T) {
	q := NewQueueChannel[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Write(7)
	}()

	require.True(t, q.WaitFor(5*time.Second))
	v, ok := q.Read()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestQueueConcurrentProducersPreserveCount(t *testing.T) {
	q := NewQueueChannel[int]()

	const producers, perProducer = 4, 250
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Write(p*perProducer + i)
			}
		}()
	}

	seen := make(map[int]bool)
	lastByProducer := make(map[int]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for len(seen) < producers*perProducer {
		if !q.WaitFor(time.Second) {
			continue
		}
		v, ok := q.Read()
		if !ok {
			continue
		}
		require.False(t, seen[v], "duplicate %d", v)
		seen[v] = true

		// Values from one producer come out in the order it wrote them.
		p := v / perProducer
		if last, ok := lastByProducer[p]; ok {
			assert.Greater(t, v, last)
		}
		lastByProducer[p] = v
	}
	<-done
	assert.Equal(t, 0, q.Len())
}
