package engine

import "sync"

// Cursor is the process-scoped sync watermark: the highest server sequence id
// observed locally. It only advances; a stale sequence never rolls it back.
// Reset only on logout/cache-clear, by dropping the whole engine.
type Cursor struct {
	mu  sync.Mutex
	pts int64
}

func (c *Cursor) Load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pts
}

// Advance raises the cursor to v if v is greater and returns the current
// value.
func (c *Cursor) Advance(v int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v > c.pts {
		c.pts = v
	}
	return c.pts
}
