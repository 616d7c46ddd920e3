// ABOUTME: Bounded thread-safe FIFO of PCM chunks
// ABOUTME: The single backpressure point between producer and drain loop
package pipeline

import (
	"sync"
	"time"
)

// ChunkQueue is a capacity-bounded FIFO of raw PCM chunks. The producer
// pushes best-effort (TryPush, then PushWait with a short bound, then
// drops); the drain loop pops with a timeout so it can recheck the close
// signal promptly.
type ChunkQueue struct {
	items     chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewChunkQueue creates a queue holding at most capacity chunks.
func NewChunkQueue(capacity int) *ChunkQueue {
	return &ChunkQueue{
		items:   make(chan []byte, capacity),
		closeCh: make(chan struct{}),
	}
}

// TryPush inserts without blocking. Returns false when full or closed.
func (q *ChunkQueue) TryPush(chunk []byte) bool {
	if q.Closed() {
		return false
	}
	select {
	case q.items <- chunk:
		return true
	default:
		return false
	}
}

// PushWait inserts, waiting up to timeout for space. Returns false when
// the wait expires or the queue closes; the caller never blocks longer,
// since the producer thread also services the network connection.
func (q *ChunkQueue) PushWait(chunk []byte, timeout time.Duration) bool {
	if q.Closed() {
		return false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case q.items <- chunk:
		return true
	case <-t.C:
		return false
	case <-q.closeCh:
		return false
	}
}

// Pop removes the oldest chunk, waiting up to timeout. Returns false on
// timeout or close; callers distinguish the two via Closed.
func (q *ChunkQueue) Pop(timeout time.Duration) ([]byte, bool) {
	select {
	case chunk := <-q.items:
		return chunk, true
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case chunk := <-q.items:
		return chunk, true
	case <-t.C:
		return nil, false
	case <-q.closeCh:
		return nil, false
	}
}

// Depth returns the instantaneous queue size. It may be stale by the time
// it is acted on; the drain loop re-evaluates every cycle.
func (q *ChunkQueue) Depth() int {
	return len(q.items)
}

// DrainAll discards all queued chunks and returns the count discarded.
func (q *ChunkQueue) DrainAll() int {
	count := 0
	for {
		select {
		case <-q.items:
			count++
		default:
			return count
		}
	}
}

// Close signals the drain loop and any waiting pushers to give up.
// Idempotent; queued chunks stay until DrainAll.
func (q *ChunkQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closeCh)
	})
}

// Closed reports whether Close was called.
func (q *ChunkQueue) Closed() bool {
	select {
	case <-q.closeCh:
		return true
	default:
		return false
	}
}
