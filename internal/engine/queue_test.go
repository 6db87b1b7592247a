package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	for i := int64(1); i <= 3; i++ {
		accepted, queued := q.Enqueue(Job{CharacterID: i})
		require.True(t, accepted)
		require.True(t, queued)
	}

	for i := int64(1); i <= 3; i++ {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, j.CharacterID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_CoalescesPending(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(Job{ID: "first", CharacterID: 7})
	accepted, queued := q.Enqueue(Job{ID: "second", CharacterID: 7})
	assert.True(t, accepted)
	assert.False(t, queued, "pending job absorbs the second")
	assert.Equal(t, 1, q.Len())

	j, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "first", j.ID)

	// Dequeued (running) job does not suppress a later enqueue.
	_, queued = q.Enqueue(Job{ID: "third", CharacterID: 7})
	assert.True(t, queued)
	assert.Equal(t, 1, q.Len())
}

func TestJobQueue_WaitSignals(t *testing.T) {
	q := newJobQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Job{CharacterID: 1})
	}()

	select {
	case <-q.Wait():
		_, ok := q.TryDequeue()
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for signal")
	}
}

func TestJobQueue_Close(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(Job{CharacterID: 1})
	q.Close()
	q.Close() // idempotent

	accepted, _ := q.Enqueue(Job{CharacterID: 2})
	assert.False(t, accepted, "closed queue rejects jobs")
	assert.True(t, q.Closed())

	_, ok := q.TryDequeue()
	assert.True(t, ok, "queued jobs drain after close")

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestJobQueue_ReleasesSlots(t *testing.T) {
	q := newJobQueue()
	for i := int64(1); i <= 100; i++ {
		q.Enqueue(Job{CharacterID: i, Reason: "bulk"})
	}
	for i := 0; i < 100; i++ {
		_, ok := q.TryDequeue()
		require.True(t, ok)
	}
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.pending)
}
