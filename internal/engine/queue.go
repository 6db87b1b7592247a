package engine

import (
	"sync"
)

// Job is one queued recompute of a character.
type Job struct {
	// ID correlates log lines of one job (UUIDv7 in production).
	ID string

	// Seq is the logical enqueue order.
	Seq int64

	CharacterID int64
	EventID     int64

	// Reason names the relation or operation that caused the job.
	Reason string
}

// jobQueue is a thread-safe FIFO queue of recompute jobs.
//
// The queue is unbounded so event-wide changes can enqueue a whole roster
// without blocking the caller.
//
// Pending jobs are coalesced per character: enqueuing a character that
// already waits in the queue is a no-op. A job is no longer pending once
// dequeued, so a change arriving while it runs queues a fresh job.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type jobQueue struct {
	mu      sync.Mutex
	jobs    []Job
	pending map[int64]struct{}
	closed  bool
	signal  chan struct{} // Signals job availability (buffered, size 1)
}

// newJobQueue creates an empty job queue.
func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:    make([]Job, 0, 64),
		pending: make(map[int64]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue.
// Thread-safe: may be called from any goroutine.
//
// Returns accepted=false if the queue is closed, and queued=false when
// the character already had a pending job.
func (q *jobQueue) Enqueue(j Job) (accepted, queued bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, false
	}
	if _, ok := q.pending[j.CharacterID]; ok {
		return true, false
	}

	q.jobs = append(q.jobs, j)
	q.pending[j.CharacterID] = struct{}{}

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true, true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Job{}, false) if queue is empty.
func (q *jobQueue) TryDequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}

	j := q.jobs[0]
	q.jobs[0] = Job{}

	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	delete(q.pending, j.CharacterID)

	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close signals that no more jobs will be enqueued.
// Queued jobs can still be dequeued. Wakes any blocked waiters.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return // Already closed
	}

	q.closed = true
	close(q.signal) // Wakes all waiters
}

// Closed reports whether Close has been called.
func (q *jobQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
