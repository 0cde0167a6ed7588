package driver

import (
	"sync"

	"github.com/roach88/livecode/internal/signals"
)

// snapshotQueue is a thread-safe FIFO of frame inputs.
//
// Producers (input devices, a playback ticker) enqueue from their own
// goroutines while the Run loop dequeues. The signal channel lets Run wait
// on input and context cancellation together.
type snapshotQueue struct {
	mu     sync.Mutex
	items  []signals.Snapshot
	closed bool
	signal chan struct{} // buffered, size 1
}

func newSnapshotQueue() *snapshotQueue {
	return &snapshotQueue{
		items:  make([]signals.Snapshot, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a snapshot to the back of the queue.
// Returns false if the queue is closed.
func (q *snapshotQueue) Enqueue(s signals.Snapshot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, s)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front snapshot without blocking.
func (q *snapshotQueue) TryDequeue() (signals.Snapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return signals.Snapshot{}, false
	}
	s := q.items[0]
	// Release the maps held by the slot.
	q.items[0] = signals.Snapshot{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return s, true
}

// Wait returns a channel that signals when snapshots may be available.
// It is closed when the queue closes.
func (q *snapshotQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *snapshotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close signals that no more snapshots will be enqueued.
func (q *snapshotQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *snapshotQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
