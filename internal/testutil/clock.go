package testutil

import (
	"sync"

	"github.com/roach88/livecode/internal/signals"
)

// FrameTicker produces consecutive frame snapshots for tests.
//
// Unlike a wall-clock ticker it never skips or repeats a frame unless told
// to, so the same scenario always sees the same frame indices. It can be
// reset and seeked for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FrameTicker struct {
	mu    sync.Mutex
	frame int64
	step  int64
}

// NewFrameTicker creates a ticker whose first snapshot is frame 0 and
// which advances step frames per tick. A step below 1 is 1.
func NewFrameTicker(step int64) *FrameTicker {
	if step < 1 {
		step = 1
	}
	return &FrameTicker{frame: -step, step: step}
}

// Next advances and returns the next snapshot.
func (c *FrameTicker) Next() signals.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame += c.step
	return signals.Snapshot{Frame: c.frame}
}

// Current returns the last frame index handed out, or -step before the
// first tick.
func (c *FrameTicker) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Seek makes the next tick return frame.
func (c *FrameTicker) Seek(frame int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame - c.step
}

// Reset rewinds to frame 0.
func (c *FrameTicker) Reset() {
	c.Seek(0)
}

// Take returns the next n snapshots.
func (c *FrameTicker) Take(n int) []signals.Snapshot {
	out := make([]signals.Snapshot, n)
	for i := range out {
		out[i] = c.Next()
	}
	return out
}
