package storage

import (
	"sync"
	"time"
)

// Clock hands out server timestamps in epoch milliseconds.
// Successive values strictly increase, even if the wall clock stalls or goes
// backwards, so a write is always ordered after the previous one.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClock builds a Clock. A nil now falls back to time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}
